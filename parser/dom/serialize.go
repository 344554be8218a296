package dom

import "strings"

// rawTextElements hold text that is written back without escaping.
var rawTextElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"xmp":      {},
	"iframe":   {},
	"noembed":  {},
	"noframes": {},
	"noscript": {},
}

var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {}, "img": {},
	"input": {}, "keygen": {}, "link": {}, "meta": {}, "param": {}, "source": {},
	"track": {}, "wbr": {},
}

// https://html.spec.whatwg.org/#escapingString
func escapeString(s string, attrVal bool) string {
	s = strings.Replace(s, "&", "&amp;", -1)
	s = strings.Replace(s, "\u00A0", "&nbsp;", -1)
	if attrVal {
		s = strings.Replace(s, "\"", "&quot;", -1)
	} else {
		s = strings.Replace(s, "<", "&lt;", -1)
		s = strings.Replace(s, ">", "&gt;", -1)
	}

	return s
}

// OuterHTML serializes e and its subtree. Every non-void element gets an
// explicit end tag, so parsing the output rebuilds the same tree. The root
// serializes as its children.
func (e Element) OuterHTML() string {
	if e.doc == nil {
		return ""
	}
	var sb strings.Builder
	if e.IsRoot() {
		e.writeChildren(&sb)
	} else {
		e.doc.serialize(&sb, e.id)
	}
	return sb.String()
}

// InnerHTML serializes the children of e.
func (e Element) InnerHTML() string {
	if e.doc == nil {
		return ""
	}
	var sb strings.Builder
	e.writeChildren(&sb)
	return sb.String()
}

func (e Element) writeChildren(sb *strings.Builder) {
	for _, c := range e.entry().children {
		e.doc.serialize(sb, c)
	}
}

// serialize writes the subtree at id. A negative stack entry marks the end
// tag of the element at its complement.
func (d *Document) serialize(sb *strings.Builder, id NodeID) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur < 0 {
			sb.WriteString("</" + d.nodes[^cur].data + ">")
			continue
		}

		n := &d.nodes[cur]
		switch n.nodeType {
		case ElementNode:
			sb.WriteString("<" + n.data)
			for _, a := range n.attrs {
				sb.WriteString(" " + a.Name + "=\"" + escapeString(a.Value, true) + "\"")
			}
			sb.WriteString(">")
			if _, void := voidElements[n.data]; void {
				continue
			}
			stack = append(stack, ^cur)
			stack = pushChildren(stack, n.children)
		case TextNode:
			if _, raw := rawTextElements[d.nodes[n.parent].data]; raw {
				sb.WriteString(n.data)
			} else {
				sb.WriteString(escapeString(n.data, false))
			}
		case CommentNode:
			sb.WriteString("<!--" + n.data + "-->")
		}
	}
}
