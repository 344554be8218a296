package dom

import (
	"iter"
	"strings"
)

// Element is a handle on an element node, or on the synthetic document root.
type Element struct {
	Node
}

// TagName is the lowercase tag name. The root reports "#document".
func (e Element) TagName() string {
	if e.doc == nil {
		return ""
	}
	n := e.entry()
	if n.nodeType == DocumentNode {
		return "#document"
	}
	return n.data
}

// IsRoot reports whether e is the synthetic document root.
func (e Element) IsRoot() bool {
	return e.Type() == DocumentNode
}

// Attributes returns the normalized attributes in declaration order.
func (e Element) Attributes() []Attribute {
	if e.doc == nil {
		return nil
	}
	attrs := e.entry().attrs
	out := make([]Attribute, len(attrs))
	copy(out, attrs)
	return out
}

// GetAttribute returns the raw value of the named attribute. The second
// result is false when the attribute is not declared at all.
func (e Element) GetAttribute(name string) (string, bool) {
	if e.doc == nil {
		return "", false
	}
	name = strings.ToLower(name)
	for _, a := range e.entry().attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e Element) HasAttribute(name string) bool {
	_, ok := e.GetAttribute(name)
	return ok
}

// ClassList returns the distinct tokens of the class attribute.
func (e Element) ClassList() []string {
	if e.doc == nil {
		return nil
	}
	classes := e.entry().classes
	out := make([]string, len(classes))
	copy(out, classes)
	return out
}

// HasClass is an exact token match against the class list.
func (e Element) HasClass(name string) bool {
	if e.doc == nil {
		return false
	}
	for _, c := range e.entry().classes {
		if c == name {
			return true
		}
	}
	return false
}

// ID returns the id attribute. An absent id is distinct from an empty one.
func (e Element) ID() (string, bool) {
	return e.GetAttribute("id")
}

// NodeID exposes the arena index, which Node.ID would otherwise shadow.
func (e Element) NodeID() NodeID {
	return e.Node.ID()
}

// ChildNodes returns every child in document order, text included.
func (e Element) ChildNodes() []Node {
	if e.doc == nil {
		return nil
	}
	ids := e.entry().children
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{doc: e.doc, id: id}
	}
	return out
}

// Children returns only the element children.
func (e Element) Children() []Element {
	if e.doc == nil {
		return nil
	}
	var out []Element
	for _, id := range e.entry().children {
		if e.doc.nodes[id].nodeType == ElementNode {
			out = append(out, Element{Node{doc: e.doc, id: id}})
		}
	}
	return out
}

// Descendants yields elements below e in pre-order. The walk keeps its own
// stack so nesting depth is not bounded by the goroutine stack.
func (e Element) Descendants(includeSelf bool) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		if e.doc == nil {
			return
		}
		if includeSelf && !yield(e) {
			return
		}
		nodes := e.doc.nodes
		stack := make([]NodeID, 0, 16)
		stack = pushChildren(stack, nodes[e.id].children)
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := &nodes[id]
			if n.nodeType != ElementNode {
				continue
			}
			if !yield(Element{Node{doc: e.doc, id: id}}) {
				return
			}
			stack = pushChildren(stack, n.children)
		}
	}
}

func pushChildren(stack []NodeID, children []NodeID) []NodeID {
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, children[i])
	}
	return stack
}
