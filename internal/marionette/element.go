package marionette

import "encoding/json"

// Element binds an element reference to the client that issued it.
type Element struct {
	client *Client
	ref    ElementRef
}

// NewElement wraps ref for use with c.
func NewElement(c *Client, ref ElementRef) *Element {
	return &Element{client: c, ref: ref}
}

// Ref returns the element reference.
func (e *Element) Ref() ElementRef {
	return e.ref
}

// Attribute returns the named attribute; ok is false when it is absent.
func (e *Element) Attribute(name string) (value string, ok bool, err error) {
	return e.client.ElementAttribute(e.ref, name)
}

// Property returns the named DOM property as raw JSON.
func (e *Element) Property(name string) (json.RawMessage, error) {
	return e.client.ElementProperty(e.ref, name)
}

// Text returns the rendered text of the element.
func (e *Element) Text() (string, error) {
	return e.client.ElementText(e.ref)
}

// FindElements searches inside the element.
func (e *Element) FindElements(method QueryMethod, target string) ([]ElementRef, error) {
	ref := e.ref
	return e.client.FindElements(method, target, &ref)
}
