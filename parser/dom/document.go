package dom

import (
	"sort"
	"strings"
)

// Document owns every node of one parsed page. Nodes live in a single slice
// in creation order, which is document order; index 0 is the root.
type Document struct {
	nodes []node
}

// Root returns the synthetic root element.
func (d *Document) Root() Element {
	return Element{Node{doc: d, id: 0}}
}

// Len is the number of nodes, root included.
func (d *Document) Len() int {
	return len(d.nodes)
}

// ElementCount is the number of elements below the root.
func (d *Document) ElementCount() int {
	count := 0
	for i := 1; i < len(d.nodes); i++ {
		if d.nodes[i].nodeType == ElementNode {
			count++
		}
	}
	return count
}

// Equal reports whether both documents have the same shape, names,
// attributes and character data.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.nodes) != len(o.nodes) {
		return false
	}
	for i := range d.nodes {
		a, b := &d.nodes[i], &o.nodes[i]
		if a.nodeType != b.nodeType || a.data != b.data || a.parent != b.parent {
			return false
		}
		if len(a.attrs) != len(b.attrs) || len(a.children) != len(b.children) {
			return false
		}
		for j := range a.attrs {
			if a.attrs[j] != b.attrs[j] {
				return false
			}
		}
		for j := range a.children {
			if a.children[j] != b.children[j] {
				return false
			}
		}
	}
	return true
}

// String dumps the tree in the html5lib test format:
//
//	#document
//	| <div>
//	|   class="x"
//	|   "text"
func (d *Document) String() string {
	var sb strings.Builder
	sb.WriteString("#document\n")

	type frame struct {
		id    NodeID
		depth int
	}
	stack := []frame{}
	root := d.nodes[0].children
	for i := len(root) - 1; i >= 0; i-- {
		stack = append(stack, frame{root[i], 1})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &d.nodes[f.id]
		indent := "| " + strings.Repeat("  ", f.depth-1)
		sb.WriteString(indent)
		switch n.nodeType {
		case ElementNode:
			sb.WriteString("<" + n.data + ">\n")
			attrs := make([]Attribute, len(n.attrs))
			copy(attrs, n.attrs)
			sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
			for _, a := range attrs {
				sb.WriteString(indent + "  " + a.Name + "=\"" + a.Value + "\"\n")
			}
		case TextNode:
			sb.WriteString("\"" + n.data + "\"\n")
		case CommentNode:
			sb.WriteString("<!-- " + n.data + " -->\n")
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{n.children[i], f.depth + 1})
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Builder appends nodes to a Document. It is the only way to create one and
// is used by the tree constructor; the finished Document has no mutators.
type Builder struct {
	doc *Document
}

func NewBuilder() *Builder {
	return &Builder{
		doc: &Document{
			nodes: []node{{nodeType: DocumentNode, parent: noNode}},
		},
	}
}

// Root is the ID of the synthetic root.
func (b *Builder) Root() NodeID {
	return 0
}

// TagName returns the tag name of an element already appended.
func (b *Builder) TagName(id NodeID) string {
	return b.doc.nodes[id].data
}

func (b *Builder) appendNode(parent NodeID, n node) NodeID {
	id := NodeID(len(b.doc.nodes))
	n.parent = parent
	b.doc.nodes = append(b.doc.nodes, n)
	p := &b.doc.nodes[parent]
	p.children = append(p.children, id)
	return id
}

// AppendElement adds an element as the last child of parent.
func (b *Builder) AppendElement(parent NodeID, tagName string, attrs []Attribute) NodeID {
	n := node{
		nodeType: ElementNode,
		data:     strings.ToLower(tagName),
		attrs:    normalizeAttributes(attrs),
	}
	for _, a := range n.attrs {
		if a.Name == "class" {
			n.classes = splitClasses(a.Value)
			break
		}
	}
	return b.appendNode(parent, n)
}

// AppendText adds character data as the last child of parent, merging it
// into a preceding text sibling.
func (b *Builder) AppendText(parent NodeID, text string) {
	if text == "" {
		return
	}
	if children := b.doc.nodes[parent].children; len(children) > 0 {
		last := &b.doc.nodes[children[len(children)-1]]
		if last.nodeType == TextNode {
			last.data += text
			return
		}
	}
	b.appendNode(parent, node{nodeType: TextNode, data: text})
}

// AppendComment adds a comment as the last child of parent.
func (b *Builder) AppendComment(parent NodeID, data string) {
	b.appendNode(parent, node{nodeType: CommentNode, data: data})
}

// Document returns the document being built.
func (b *Builder) Document() *Document {
	return b.doc
}
