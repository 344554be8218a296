package dom

type NodeType uint16

const (
	ElementNode NodeType = iota + 1
	TextNode
	CommentNode
	DocumentNode
)

func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case DocumentNode:
		return "document"
	default:
		return "unknown"
	}
}

// NodeID indexes a node inside its Document's arena.
type NodeID int32

const noNode NodeID = -1

// node is the arena entry. Parent links are indices, never pointers.
type node struct {
	nodeType NodeType
	data     string
	attrs    []Attribute
	classes  []string
	parent   NodeID
	children []NodeID
}

// Node is a read-only handle on one node of a Document.
type Node struct {
	doc *Document
	id  NodeID
}

func (n Node) entry() *node {
	return &n.doc.nodes[n.id]
}

// ID returns the arena index of the node. Indices follow document order.
func (n Node) ID() NodeID {
	return n.id
}

// Type returns the kind of the node.
func (n Node) Type() NodeType {
	if n.doc == nil {
		return 0
	}
	return n.entry().nodeType
}

// Data is the tag name for elements and the character data for text and
// comment nodes.
func (n Node) Data() string {
	if n.doc == nil {
		return ""
	}
	return n.entry().data
}

// Parent returns the enclosing element. The synthetic root has none.
func (n Node) Parent() (Element, bool) {
	if n.doc == nil {
		return Element{}, false
	}
	p := n.entry().parent
	if p == noNode {
		return Element{}, false
	}
	return Element{Node{doc: n.doc, id: p}}, true
}

// Element narrows the handle to an Element when the node is one.
func (n Node) Element() (Element, bool) {
	switch n.Type() {
	case ElementNode, DocumentNode:
		return Element{n}, true
	default:
		return Element{}, false
	}
}
