package handle

// Managed runtime object references. Each category is its own defined type
// so a StringRef can never be passed where a ClassRef is expected.
type (
	StringRef   uint32
	ClassRef    uint32
	MethodRef   uint32
	ObjectRef   uint32
	ArrayRef    uint32
	AssemblyRef uint32
)

// GCHandle pins a managed object so the host can refer to it across calls.
type GCHandle uint32

// JSHandle identifies a host-side object exposed to managed code.
// Negative values are sentinels.
type JSHandle int32

// Native pointers into guest linear memory.
type (
	VoidPtr uint32
	CharPtr uint32
)

const (
	NullString   StringRef   = 0
	NullClass    ClassRef    = 0
	NullMethod   MethodRef   = 0
	NullObject   ObjectRef   = 0
	NullArray    ArrayRef    = 0
	NullAssembly AssemblyRef = 0
	NullGCHandle GCHandle    = 0

	NullJSHandle     JSHandle = 0
	DisposedJSHandle JSHandle = -1

	NullVoidPtr VoidPtr = 0
	NullCharPtr CharPtr = 0
)

func (h StringRef) IsNull() bool   { return h == NullString }
func (h ClassRef) IsNull() bool    { return h == NullClass }
func (h MethodRef) IsNull() bool   { return h == NullMethod }
func (h ObjectRef) IsNull() bool   { return h == NullObject }
func (h ArrayRef) IsNull() bool    { return h == NullArray }
func (h AssemblyRef) IsNull() bool { return h == NullAssembly }
func (h GCHandle) IsNull() bool    { return h == NullGCHandle }
func (h JSHandle) IsNull() bool    { return h == NullJSHandle }
func (p VoidPtr) IsNull() bool     { return p == NullVoidPtr }
func (p CharPtr) IsNull() bool     { return p == NullCharPtr }

// IsDisposed reports whether h is the disposed sentinel.
func (h JSHandle) IsDisposed() bool { return h == DisposedJSHandle }

// Valid reports whether h may refer to a live object.
func (h JSHandle) Valid() bool { return h > 0 }

// Managed is satisfied by every managed object reference category.
type Managed interface {
	~uint32
	StringRef | ClassRef | MethodRef | ObjectRef | ArrayRef | AssemblyRef
}

// Native is satisfied by every native pointer category.
type Native interface {
	~uint32
	VoidPtr | CharPtr
}

// CoerceNull returns the value behind p, or the category's null value when
// p is nil.
func CoerceNull[T Managed | Native](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
