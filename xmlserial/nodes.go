package xmlserial

import (
	"encoding/xml"
	"slices"
	"strings"
)

// NodeType classifies XML nodes.
type NodeType uint8

const (
	NodeElement NodeType = iota + 1
	NodeAttribute
	NodeText
	NodeComment
	NodeProcessingInstruction
)

func (t NodeType) String() string {
	switch t {
	case NodeElement:
		return "element"
	case NodeAttribute:
		return "attribute"
	case NodeText:
		return "text"
	case NodeComment:
		return "comment"
	case NodeProcessingInstruction:
		return "processing-instruction"
	default:
		return "unknown"
	}
}

// Node is an XML construct handed to notification handlers.
type Node interface {
	NodeType() NodeType
	// XMLName is the qualified name; text and comment nodes use the DOM
	// names #text and #comment.
	XMLName() xml.Name
	// Value is the textual content of the node.
	Value() string
}

// Attr is an attribute as read from the document.
type Attr struct {
	Name xml.Name
	Val  string
}

func (a Attr) NodeType() NodeType { return NodeAttribute }
func (a Attr) XMLName() xml.Name  { return a.Name }
func (a Attr) Value() string      { return a.Val }

// Element is a detached element subtree.
type Element struct {
	Name     xml.Name
	Attrs    []Attr
	Children []Node
}

func (e *Element) NodeType() NodeType { return NodeElement }
func (e *Element) XMLName() xml.Name  { return e.Name }

// Value concatenates the text content of the subtree.
func (e *Element) Value() string {
	var b strings.Builder
	e.appendText(&b)
	return b.String()
}

func (e *Element) appendText(b *strings.Builder) {
	for _, c := range e.Children {
		switch n := c.(type) {
		case CharData:
			b.WriteString(string(n))
		case *Element:
			n.appendText(b)
		}
	}
}

// Clone returns a deep copy of the subtree.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := &Element{Name: e.Name, Attrs: slices.Clone(e.Attrs)}
	if e.Children != nil {
		c.Children = make([]Node, len(e.Children))
		for i, n := range e.Children {
			if el, ok := n.(*Element); ok {
				n = el.Clone()
			}
			c.Children[i] = n
		}
	}
	return c
}

// Attr returns the value of the first attribute with the given local name.
func (e *Element) Attr(local string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == local {
			return a.Val, true
		}
	}
	return "", false
}

// CharData is a text node.
type CharData string

func (c CharData) NodeType() NodeType { return NodeText }
func (c CharData) XMLName() xml.Name  { return xml.Name{Local: "#text"} }
func (c CharData) Value() string      { return string(c) }

// Comment is a comment node.
type Comment string

func (c Comment) NodeType() NodeType { return NodeComment }
func (c Comment) XMLName() xml.Name  { return xml.Name{Local: "#comment"} }
func (c Comment) Value() string      { return string(c) }

// ProcInst is a processing instruction.
type ProcInst struct {
	Target string
	Inst   string
}

func (p ProcInst) NodeType() NodeType { return NodeProcessingInstruction }
func (p ProcInst) XMLName() xml.Name  { return xml.Name{Local: p.Target} }
func (p ProcInst) Value() string      { return p.Inst }

func convertAttrs(attrs []xml.Attr) []Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]Attr, len(attrs))
	for i, a := range attrs {
		out[i] = Attr{Name: a.Name, Val: a.Value}
	}
	return out
}

// qualifiedName renders name as "namespace:local", or just local when the
// name has no namespace.
func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}
