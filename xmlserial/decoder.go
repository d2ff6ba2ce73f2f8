package xmlserial

import (
	"bytes"
	"encoding/xml"
	"io"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/dotnet-host/errors"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// Decoder unmarshals XML into Go values with encoding/xml and raises
// notifications for every construct the target type has no field for.
type Decoder struct {
	events    *Events
	sender    any
	logger    *zap.Logger
	trackRefs bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithEvents sets the handlers notified during Decode.
func WithEvents(ev *Events) Option {
	return func(d *Decoder) { d.events = ev }
}

// WithSender sets the sender passed to handlers. Defaults to the Decoder.
func WithSender(sender any) Option {
	return func(d *Decoder) { d.sender = sender }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithReferenceTracking treats id and href="#id" attributes as object
// references. After decoding, every id no href pointed to is reported as an
// unreferenced object.
func WithReferenceTracking() Option {
	return func(d *Decoder) { d.trackRefs = true }
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{logger: Logger()}
	for _, opt := range opts {
		opt(d)
	}
	if d.sender == nil {
		d.sender = d
	}
	return d
}

// Decode reads an XML document from r into v, which must be a non-nil
// pointer. Notifications are delivered synchronously in document order after
// v has been populated; they never cause Decode to fail.
func (d *Decoder) Decode(r io.Reader, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Value(v).
			Detail("decode target must be a non-nil pointer").
			Build()
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return errors.DecodeFailed("input", err)
	}

	if err := xml.Unmarshal(data, v); err != nil {
		return errors.DecodeFailed("document", err)
	}

	s := &scanner{
		d:    d,
		dec:  xml.NewDecoder(bytes.NewReader(data)),
		root: rv.Elem(),
		refs: make(map[string]struct{}),
	}
	if err := s.run(); err != nil {
		return errors.DecodeFailed("document", err)
	}
	return nil
}

type frame struct {
	info   *typeInfo
	val    reflect.Value
	counts map[*elemInfo]int
}

type idEntry struct {
	target any
	id     string
}

type scanner struct {
	d     *Decoder
	dec   *xml.Decoder
	root  reflect.Value
	stack []*frame
	ids   []idEntry
	refs  map[string]struct{}
}

func (s *scanner) run() error {
	for {
		line, col := s.dec.InputPos()
		tok, err := s.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := s.start(t, line, col); err != nil {
				return err
			}
		case xml.EndElement:
			s.stack = s.stack[:len(s.stack)-1]
		case xml.CharData:
			top := s.top()
			if top == nil || top.info.chardata || len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			s.unknownNode(CharData(string(t)), line, col, targetOf(top))
		case xml.Comment:
			top := s.top()
			if top == nil || top.info.comment {
				continue
			}
			s.unknownNode(Comment(string(t)), line, col, targetOf(top))
		case xml.ProcInst:
			top := s.top()
			if top == nil {
				continue
			}
			s.unknownNode(ProcInst{Target: t.Target, Inst: string(t.Inst)}, line, col, targetOf(top))
		}
	}

	s.reportUnreferenced()
	return nil
}

func (s *scanner) top() *frame {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

func (s *scanner) start(t xml.StartElement, line, col int) error {
	top := s.top()
	if top == nil {
		f := &frame{
			info:   getTypeInfo(s.root.Type()),
			val:    s.root,
			counts: make(map[*elemInfo]int),
		}
		return s.enter(f, t, line, col)
	}

	e, _ := top.info.matchElem(t.Name)
	if e == nil {
		if top.info.anyElem {
			return s.dec.Skip()
		}
		elem, err := readSubtree(s.dec, t)
		if err != nil {
			return err
		}
		s.unknownElement(elem, line, col, targetOf(top), top.info.expectedElems)
		return nil
	}

	return s.enter(s.child(top, e), t, line, col)
}

func (s *scanner) enter(f *frame, t xml.StartElement, line, col int) error {
	if f.info.opaque {
		return s.dec.Skip()
	}
	s.checkAttrs(f, t, line, col)
	s.stack = append(s.stack, f)
	return nil
}

// child resolves the frame for a known element. Elements mapped to
// non-struct fields report the enclosing struct as their target.
func (s *scanner) child(top *frame, e *elemInfo) *frame {
	if e.wrapper {
		return &frame{info: e.info, val: top.val, counts: top.counts}
	}

	var v reflect.Value
	if top.val.IsValid() && top.val.Kind() == reflect.Struct {
		if fv, err := top.val.FieldByIndexErr(e.index); err == nil {
			v = resolveValue(fv, top.counts, e)
		}
	}
	if !v.IsValid() || v.Kind() != reflect.Struct {
		v = top.val
	}

	return &frame{info: e.info, val: v, counts: make(map[*elemInfo]int)}
}

// resolveValue follows pointers and picks the slice element filled by the
// current occurrence of e.
func resolveValue(v reflect.Value, counts map[*elemInfo]int, e *elemInfo) reflect.Value {
	v = indirect(v)
	if v.IsValid() && v.Kind() == reflect.Slice && v.Type().Elem().Kind() != reflect.Uint8 {
		i := counts[e]
		counts[e] = i + 1
		if i >= v.Len() {
			return reflect.Value{}
		}
		v = indirect(v.Index(i))
	}
	return v
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func targetOf(f *frame) any {
	if f == nil || !f.val.IsValid() {
		return nil
	}
	if f.val.CanAddr() {
		return f.val.Addr().Interface()
	}
	return f.val.Interface()
}

func (s *scanner) checkAttrs(f *frame, t xml.StartElement, line, col int) {
	for _, a := range t.Attr {
		if isNamespaceDecl(a.Name) || a.Name.Space == xsiNamespace {
			continue
		}

		if s.d.trackRefs && a.Name.Space == "" {
			switch a.Name.Local {
			case "id":
				s.ids = append(s.ids, idEntry{id: a.Value, target: targetOf(f)})
				continue
			case "href":
				if ref, ok := strings.CutPrefix(a.Value, "#"); ok {
					s.refs[ref] = struct{}{}
				}
				continue
			}
		}

		if f.info.matchAttr(a.Name) {
			continue
		}
		s.unknownAttr(Attr{Name: a.Name, Val: a.Value}, line, col, targetOf(f), f.info.expectedAttrs)
	}
}

func isNamespaceDecl(name xml.Name) bool {
	return name.Space == "xmlns" || (name.Space == "" && name.Local == "xmlns")
}

func (s *scanner) unknownNode(n Node, line, col int, target any) {
	s.d.logger.Debug("unknown node",
		zap.Stringer("type", n.NodeType()),
		zap.Int("line", line),
		zap.Int("column", col))

	if s.d.events.hasNode() {
		s.d.events.notifyNode(s.d.sender, NewNodeEvent(n, line, col, target))
	}
}

func (s *scanner) unknownAttr(a Attr, line, col int, target any, expected string) {
	s.unknownNode(a, line, col, target)
	if s.d.events.hasAttribute() {
		s.d.events.notifyAttribute(s.d.sender, NewAttributeEvent(a, line, col, target, &expected))
	}
}

func (s *scanner) unknownElement(e *Element, line, col int, target any, expected string) {
	s.unknownNode(e, line, col, target)
	if s.d.events.hasElement() {
		s.d.events.notifyElement(s.d.sender, NewElementEvent(e, line, col, target, &expected))
	}
}

func (s *scanner) reportUnreferenced() {
	if !s.d.trackRefs {
		return
	}
	for _, entry := range s.ids {
		if _, ok := s.refs[entry.id]; ok {
			continue
		}
		s.d.logger.Debug("unreferenced object", zap.String("id", entry.id))
		if s.d.events.hasUnreferenced() {
			s.d.events.notifyUnreferenced(s.d.sender, NewUnreferencedObjectEvent(entry.target, entry.id))
		}
	}
}

// readSubtree consumes the element opened by start and returns it detached.
func readSubtree(dec *xml.Decoder, start xml.StartElement) (*Element, error) {
	root := &Element{Name: start.Name, Attrs: convertAttrs(start.Attr)}
	stack := []*Element{root}

	for len(stack) > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		cur := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			child := &Element{Name: t.Name, Attrs: convertAttrs(t.Attr)}
			cur.Children = append(cur.Children, child)
			stack = append(stack, child)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			cur.Children = append(cur.Children, CharData(string(t)))
		case xml.Comment:
			cur.Children = append(cur.Children, Comment(string(t)))
		case xml.ProcInst:
			cur.Children = append(cur.Children, ProcInst{Target: t.Target, Inst: string(t.Inst)})
		}
	}

	return root, nil
}
