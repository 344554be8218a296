package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSample() *Document {
	b := NewBuilder()
	html := b.AppendElement(b.Root(), "HTML", nil)
	body := b.AppendElement(html, "body", []Attribute{{"ID", "main"}})
	div := b.AppendElement(body, "div", []Attribute{
		{"class", "  a  b\ta  "},
		{"data-x", "1"},
		{"DATA-X", "2"},
	})
	b.AppendText(div, "hello ")
	b.AppendText(div, "world")
	b.AppendComment(div, "note")
	b.AppendElement(div, "span", nil)
	b.AppendElement(body, "img", []Attribute{{"src", "a.png"}, {"alt", ""}})
	return b.Document()
}

func TestElementAccessors(t *testing.T) {
	doc := buildSample()
	root := doc.Root()
	assert.True(t, root.IsRoot())
	assert.Equal(t, "#document", root.TagName())
	_, ok := root.Parent()
	assert.False(t, ok)

	var tags []string
	for e := range root.Descendants(false) {
		tags = append(tags, e.TagName())
	}
	assert.Equal(t, []string{"html", "body", "div", "span", "img"}, tags)
	assert.Equal(t, 5, doc.ElementCount())

	body := root.Children()[0].Children()[0]
	id, ok := body.ID()
	assert.True(t, ok)
	assert.Equal(t, "main", id)

	div := body.Children()[0]
	assert.Equal(t, []string{"a", "b"}, div.ClassList())
	assert.True(t, div.HasClass("a"))
	assert.False(t, div.HasClass("ab"))
	_, ok = div.ID()
	assert.False(t, ok, "absent id must not read as empty")

	v, ok := div.GetAttribute("data-x")
	assert.True(t, ok)
	assert.Equal(t, "2", v, "last declaration wins")
	assert.Equal(t, []Attribute{{"class", "  a  b\ta  "}, {"data-x", "2"}}, div.Attributes())
	assert.True(t, div.HasAttribute("DATA-X"))

	children := div.ChildNodes()
	require.Len(t, children, 3)
	assert.Equal(t, TextNode, children[0].Type())
	assert.Equal(t, "hello world", children[0].Data())
	assert.Equal(t, CommentNode, children[1].Type())
	parent, ok := children[2].Parent()
	require.True(t, ok)
	assert.Equal(t, div, parent)

	img := body.Children()[1]
	alt, ok := img.GetAttribute("alt")
	assert.True(t, ok)
	assert.Empty(t, alt)
	assert.Empty(t, img.ClassList())
}

func TestDescendantsIncludeSelfAndStop(t *testing.T) {
	doc := buildSample()
	div := doc.Root().Children()[0].Children()[0].Children()[0]

	var tags []string
	for e := range div.Descendants(true) {
		tags = append(tags, e.TagName())
	}
	assert.Equal(t, []string{"div", "span"}, tags)

	count := 0
	for range doc.Root().Descendants(false) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestDeepTreeTraversal(t *testing.T) {
	const depth = 100000
	b := NewBuilder()
	parent := b.Root()
	for i := 0; i < depth; i++ {
		parent = b.AppendElement(parent, "div", nil)
	}
	doc := b.Document()

	count := 0
	for range doc.Root().Descendants(false) {
		count++
	}
	assert.Equal(t, depth, count)
}

func TestSplitClasses(t *testing.T) {
	tests := []struct {
		in       string
		expected []string
	}{
		{"", nil},
		{"   ", nil},
		{"a", []string{"a"}},
		{" a  b ", []string{"a", "b"}},
		{"a\n\tb\fc\rd", []string{"a", "b", "c", "d"}},
		{"x y x", []string{"x", "y"}},
		{"A a", []string{"A", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitClasses(tt.in))
		})
	}
}

func TestDocumentStringAndEqual(t *testing.T) {
	a, b := buildSample(), buildSample()
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())

	expected := `#document
| <html>
|   <body>
|     id="main"
|     <div>
|       class="  a  b	a  "
|       data-x="2"
|       "hello world"
|       <!-- note -->
|       <span>
|     <img>
|       alt=""
|       src="a.png"`
	assert.Equal(t, expected, a.String())

	other := NewBuilder()
	other.AppendElement(other.Root(), "html", nil)
	assert.False(t, a.Equal(other.Document()))
}

func TestZeroElement(t *testing.T) {
	var e Element
	assert.Equal(t, "", e.TagName())
	assert.False(t, e.HasAttribute("x"))
	assert.Nil(t, e.ClassList())
	for range e.Descendants(true) {
		t.Fatal("zero element has no descendants")
	}
}
