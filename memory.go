package dotnethost

import "github.com/wippyai/dotnet-host/handle"

// Memory is guest linear memory as seen by the host.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
	// ReadCString reads the NUL-terminated string at p.
	ReadCString(p handle.CharPtr) (string, error)
	Size() uint32
}

// Allocator hands out blocks of guest memory.
type Allocator interface {
	Alloc(size uint32) (handle.VoidPtr, error)
	Free(p handle.VoidPtr)
}
