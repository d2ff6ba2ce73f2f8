package host

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	dotnethost "github.com/wippyai/dotnet-host"
	"github.com/wippyai/dotnet-host/errors"
	"github.com/wippyai/dotnet-host/handle"
)

const (
	mallocExport = "malloc"
	freeExport   = "free"
)

// guestMemory wraps wazero memory.
type guestMemory struct {
	mem api.Memory
}

func (m *guestMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *guestMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *guestMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (m *guestMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

func (m *guestMemory) ReadCString(p handle.CharPtr) (string, error) {
	if p.IsNull() {
		return "", errors.InvalidInput(errors.PhaseRuntime, "null string pointer")
	}
	size := m.mem.Size()
	if uint32(p) >= size {
		return "", fmt.Errorf("read out of bounds: offset=%d", p)
	}
	rest, _ := m.mem.Read(uint32(p), size-uint32(p))
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		return "", fmt.Errorf("unterminated string at %d", p)
	}
	return string(rest[:n]), nil
}

func (m *guestMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// mallocAllocator calls the module's libc-style malloc and free exports.
// Calls are serialized; the guest is not reentrant.
type mallocAllocator struct {
	malloc     api.Function
	free       api.Function
	logger     *zap.Logger
	currentCtx context.Context
	mu         sync.Mutex
}

func (a *mallocAllocator) setContext(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentCtx = ctx
}

func (a *mallocAllocator) callContext() context.Context {
	if a.currentCtx == nil {
		return context.Background()
	}
	return a.currentCtx
}

func (a *mallocAllocator) Alloc(size uint32) (handle.VoidPtr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	results, err := a.malloc.Call(a.callContext(), uint64(size))
	if err != nil {
		return handle.NullVoidPtr, errors.Wrap(errors.PhaseRuntime, errors.KindAllocation, err, "malloc")
	}
	p := handle.VoidPtr(uint32(results[0]))
	if p.IsNull() {
		return handle.NullVoidPtr, errors.AllocationFailed(errors.PhaseRuntime, size)
	}
	return p, nil
}

func (a *mallocAllocator) Free(p handle.VoidPtr) {
	if a.free == nil || p.IsNull() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.free.Call(a.callContext(), uint64(p)); err != nil {
		a.logger.Warn("free failed", zap.Uint32("ptr", uint32(p)), zap.Error(err))
	}
}

var (
	_ dotnethost.Memory    = (*guestMemory)(nil)
	_ dotnethost.Allocator = (*mallocAllocator)(nil)
)
