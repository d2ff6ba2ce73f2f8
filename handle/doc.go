// Package handle defines the opaque identifiers shared between the host and
// a managed runtime running inside WebAssembly.
//
// Every category of pointer-sized identifier is a distinct Go type:
//
//	StringRef, ClassRef, MethodRef, ObjectRef, ArrayRef, AssemblyRef
//	GCHandle, JSHandle
//	VoidPtr, CharPtr
//
// Values of different categories cannot be mixed without an explicit
// conversion. Each category has a Null constant; JSHandle additionally has
// DisposedJSHandle.
//
// # Handle Table
//
// Table maps JSHandles to host values:
//
//	table := handle.NewTable()
//	h := table.Register(conn)
//	v, ok := table.Get(h)
//	table.Release(h)
//
// Observers receive EventRegistered and EventReleased notifications. Values
// implementing Disposer are disposed on release and when the table closes.
package handle
