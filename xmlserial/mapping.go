package xmlserial

import (
	"encoding"
	"encoding/xml"
	"reflect"
	"strings"
	"sync"
)

// typeInfo is the set of names a Go type accepts when encoding/xml
// unmarshals into it.
type typeInfo struct {
	attrs []attrInfo
	elems []*elemInfo

	expectedAttrs string
	expectedElems string

	anyAttr  bool
	anyElem  bool
	chardata bool
	comment  bool

	// opaque types consume their whole subtree (xml.Unmarshaler, innerxml,
	// interfaces); nothing inside them is reported.
	opaque bool
}

type attrInfo struct {
	name xml.Name
}

type elemInfo struct {
	name  xml.Name
	info  *typeInfo
	index []int
	// wrapper marks the intermediate element of an "a>b" path; the value
	// being populated stays the enclosing struct.
	wrapper bool
}

var (
	unmarshalerType     = reflect.TypeFor[xml.Unmarshaler]()
	attrUnmarshalerType = reflect.TypeFor[xml.UnmarshalerAttr]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	nameType            = reflect.TypeFor[xml.Name]()

	leafInfo   = &typeInfo{chardata: true}
	opaqueInfo = &typeInfo{opaque: true}

	tinfoMu  sync.Mutex
	tinfoMap = map[reflect.Type]*typeInfo{}
)

func (ti *typeInfo) matchAttr(name xml.Name) bool {
	for _, a := range ti.attrs {
		if nameMatches(a.name, name) {
			return true
		}
	}
	return ti.anyAttr
}

func (ti *typeInfo) matchElem(name xml.Name) (*elemInfo, int) {
	for i, e := range ti.elems {
		if nameMatches(e.name, name) {
			return e, i
		}
	}
	return nil, -1
}

func nameMatches(want, got xml.Name) bool {
	return want.Local == got.Local && (want.Space == "" || want.Space == got.Space)
}

// getTypeInfo returns the mapping for t, building and caching it on first use.
func getTypeInfo(t reflect.Type) *typeInfo {
	tinfoMu.Lock()
	defer tinfoMu.Unlock()
	return buildTypeInfo(t)
}

func buildTypeInfo(t reflect.Type) *typeInfo {
	t = elemType(t)

	if isOpaque(t) {
		return opaqueInfo
	}
	if t.Kind() != reflect.Struct || isTextual(t) {
		return leafInfo
	}

	if ti, ok := tinfoMap[t]; ok {
		return ti
	}

	ti := &typeInfo{}
	// Registered before the fields are walked so recursive types terminate.
	tinfoMap[t] = ti
	addFields(ti, t, nil)
	ti.expectedAttrs = joinAttrNames(ti.attrs)
	ti.expectedElems = joinElemNames(ti.elems)
	return ti
}

func addFields(ti *typeInfo, t reflect.Type, parent []int) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		if !f.IsExported() && !f.Anonymous {
			continue
		}
		if f.Name == "XMLName" && f.Type == nameType {
			continue
		}

		tag := f.Tag.Get("xml")
		if tag == "-" {
			continue
		}

		if f.Anonymous && tag == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				addFields(ti, ft, index)
				continue
			}
			if !f.IsExported() {
				continue
			}
		}

		name, flags, _ := strings.Cut(tag, ",")
		var ns string
		if sp, local, ok := strings.Cut(name, " "); ok {
			ns, name = sp, local
		}

		switch {
		case hasFlag(flags, "attr"):
			if hasFlag(flags, "any") {
				ti.anyAttr = true
				continue
			}
			if name == "" {
				name = f.Name
			}
			ti.attrs = append(ti.attrs, attrInfo{name: xml.Name{Space: ns, Local: name}})
		case hasFlag(flags, "chardata"), hasFlag(flags, "cdata"):
			ti.chardata = true
		case hasFlag(flags, "innerxml"):
			ti.opaque = true
		case hasFlag(flags, "comment"):
			ti.comment = true
		case hasFlag(flags, "any"):
			ti.anyElem = true
		default:
			if name == "" {
				name = f.Name
				if xn, ok := lookupXMLName(f.Type); ok {
					ns, name = xn.Space, xn.Local
				}
			}
			addElemPath(ti, strings.Split(name, ">"), ns, index, f.Type)
		}
	}
}

// addElemPath registers an element path like "a>b>c". Intermediate names
// become wrapper elements that share the struct being populated.
func addElemPath(ti *typeInfo, path []string, ns string, index []int, ft reflect.Type) {
	for len(path) > 1 {
		name := xml.Name{Space: ns, Local: path[0]}
		e, _ := ti.matchElem(name)
		if e == nil || !e.wrapper {
			e = &elemInfo{name: name, wrapper: true, info: &typeInfo{}}
			ti.elems = append(ti.elems, e)
			ti.expectedElems = joinElemNames(ti.elems)
		}
		ti = e.info
		path = path[1:]
	}

	ti.elems = append(ti.elems, &elemInfo{
		name:  xml.Name{Space: ns, Local: path[0]},
		info:  buildTypeInfo(ft),
		index: index,
	})
	ti.expectedElems = joinElemNames(ti.elems)
}

// lookupXMLName returns the element name a struct type declares through a
// tagged XMLName field. Only pointers are dereferenced.
func lookupXMLName(t reflect.Type) (xml.Name, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return xml.Name{}, false
	}
	f, ok := t.FieldByName("XMLName")
	if !ok || f.Type != nameType {
		return xml.Name{}, false
	}
	name, _, _ := strings.Cut(f.Tag.Get("xml"), ",")
	var ns string
	if sp, local, ok := strings.Cut(name, " "); ok {
		ns, name = sp, local
	}
	if name == "" || name == "-" {
		return xml.Name{}, false
	}
	return xml.Name{Space: ns, Local: name}, true
}

func hasFlag(flags, flag string) bool {
	for _, f := range strings.Split(flags, ",") {
		if f == flag {
			return true
		}
	}
	return false
}

// elemType strips pointers and slices, except []byte which is textual.
func elemType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer:
			t = t.Elem()
		case reflect.Slice:
			if t.Elem().Kind() == reflect.Uint8 {
				return t
			}
			t = t.Elem()
		default:
			return t
		}
	}
}

func isOpaque(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return true
	}
	return t.Implements(unmarshalerType) || reflect.PointerTo(t).Implements(unmarshalerType)
}

func isTextual(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return pt.Implements(textUnmarshalerType) || pt.Implements(attrUnmarshalerType)
}

func joinAttrNames(attrs []attrInfo) string {
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = qualifiedName(a.name)
	}
	return strings.Join(names, ", ")
}

func joinElemNames(elems []*elemInfo) string {
	names := make([]string, len(elems))
	for i, e := range elems {
		names[i] = qualifiedName(e.name)
	}
	return strings.Join(names, ", ")
}
