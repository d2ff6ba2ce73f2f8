// Package xmlserial decodes XML into Go values and reports the parts of the
// document the target type does not map.
//
// Decoding uses encoding/xml; the mapping of a type is derived from its xml
// struct tags the same way encoding/xml reads them. Four notifications exist:
//
//	AttributeEvent           an attribute with no matching field
//	ElementEvent             an element with no matching field
//	NodeEvent                any unmapped node (text, comment, PI, and the
//	                         attributes and elements above)
//	UnreferencedObjectEvent  an id never referenced by href="#id"
//
// Register handlers on an Events value and pass it to the decoder:
//
//	var ev xmlserial.Events
//	ev.OnUnknownElement(func(_ any, e *xmlserial.ElementEvent) {
//		log.Printf("%d:%d unexpected <%s>, want one of %s",
//			e.Line(), e.Column(), e.Element().Name.Local, e.ExpectedElements())
//	})
//
//	dec := xmlserial.NewDecoder(xmlserial.WithEvents(&ev))
//	err := dec.Decode(r, &order)
//
// Handlers run synchronously, once per construct, in document order. They
// are advisory: nothing a handler does stops decoding.
package xmlserial
