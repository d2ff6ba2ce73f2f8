package xmlserial

// AttributeEvent reports an attribute with no matching field.
type AttributeEvent struct {
	target   any
	attr     Attr
	expected string
	line     int
	column   int
}

// NewAttributeEvent builds an attribute notification. expected is the
// comma-joined list of attribute names valid at this point, or nil.
func NewAttributeEvent(attr Attr, line, column int, target any, expected *string) *AttributeEvent {
	return &AttributeEvent{
		attr:     attr,
		line:     line,
		column:   column,
		target:   target,
		expected: deref(expected),
	}
}

func (e *AttributeEvent) Attr() Attr { return e.attr }

// Target is the value being populated when the attribute was read.
func (e *AttributeEvent) Target() any                { return e.target }
func (e *AttributeEvent) Line() int                  { return e.line }
func (e *AttributeEvent) Column() int                { return e.column }
func (e *AttributeEvent) ExpectedAttributes() string { return e.expected }

// ElementEvent reports an element with no matching field.
type ElementEvent struct {
	target   any
	elem     *Element
	expected string
	line     int
	column   int
}

// NewElementEvent builds an element notification. It panics if elem is nil.
func NewElementEvent(elem *Element, line, column int, target any, expected *string) *ElementEvent {
	if elem == nil {
		panic("xmlserial: nil element")
	}
	return &ElementEvent{
		elem:     elem,
		line:     line,
		column:   column,
		target:   target,
		expected: deref(expected),
	}
}

// Element returns a copy of the unknown subtree. Changes to it are not seen
// by other handlers.
func (e *ElementEvent) Element() *Element { return e.elem.Clone() }

func (e *ElementEvent) Target() any              { return e.target }
func (e *ElementEvent) Line() int                { return e.line }
func (e *ElementEvent) Column() int              { return e.column }
func (e *ElementEvent) ExpectedElements() string { return e.expected }

// NodeEvent reports any node with no matching field. It is raised before
// the attribute or element specific event for the same construct.
type NodeEvent struct {
	target any
	node   Node
	line   int
	column int
}

// NewNodeEvent builds a node notification. It panics if node is nil.
func NewNodeEvent(node Node, line, column int, target any) *NodeEvent {
	if node == nil {
		panic("xmlserial: nil node")
	}
	return &NodeEvent{
		node:   node,
		line:   line,
		column: column,
		target: target,
	}
}

func (e *NodeEvent) Node() Node {
	if el, ok := e.node.(*Element); ok {
		return el.Clone()
	}
	return e.node
}

func (e *NodeEvent) NodeType() NodeType { return e.node.NodeType() }

// Name is the qualified name of the node.
func (e *NodeEvent) Name() string         { return qualifiedName(e.node.XMLName()) }
func (e *NodeEvent) LocalName() string    { return e.node.XMLName().Local }
func (e *NodeEvent) NamespaceURI() string { return e.node.XMLName().Space }
func (e *NodeEvent) Text() string         { return e.node.Value() }
func (e *NodeEvent) Target() any          { return e.target }
func (e *NodeEvent) Line() int            { return e.line }
func (e *NodeEvent) Column() int          { return e.column }

// UnreferencedObjectEvent reports an object carrying an id that no href
// pointed to.
type UnreferencedObjectEvent struct {
	object any
	id     string
}

func NewUnreferencedObjectEvent(object any, id string) *UnreferencedObjectEvent {
	return &UnreferencedObjectEvent{object: object, id: id}
}

func (e *UnreferencedObjectEvent) ID() string  { return e.id }
func (e *UnreferencedObjectEvent) Object() any { return e.object }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
