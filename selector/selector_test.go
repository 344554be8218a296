package selector

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/heathj/pagecheck/parser"
	"github.com/heathj/pagecheck/parser/dom"
)

func describe(els []dom.Element) []string {
	out := make([]string, 0, len(els))
	for _, e := range els {
		id, _ := e.ID()
		out = append(out, e.TagName()+"#"+id)
	}
	return out
}

func TestByClass(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		class    string
		expected []string
	}{
		{"token match", `<div id=a class="a x b"></div>`, "x", []string{"div#a"}},
		{"no substring match", `<div id=a class="axb"></div>`, "x", []string{}},
		{"case sensitive", `<div id=a class="CP"></div>`, "cp", []string{}},
		{"consecutive whitespace", "<p id=a class=\"  cp \t\n cdp_grid  \"></p>", "cdp_grid", []string{"p#a"}},
		{"duplicate tokens once", `<p id=a class="cp cp"></p><p id=b class=cp></p>`, "cp", []string{"p#a", "p#b"}},
		{"nested in document order", `<div id=a class=cp><span id=b class=cp></span></div><i id=c class=cp>`, "cp", []string{"div#a", "span#b", "i#c"}},
		{"no class attribute", `<div id=a></div>`, "cp", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := parser.Parse(tt.in).Root()
			assert.Equal(t, tt.expected, describe(ByClass(root, tt.class)))
		})
	}
}

func TestByAttributePresence(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		attr     string
		expected []string
	}{
		{"empty value counts", `<div id=a data-scroll=""></div>`, "data-scroll", []string{"div#a"}},
		{"bare attribute counts", `<div id=a data-scroll></div>`, "data-scroll", []string{"div#a"}},
		{"absent", `<div id=a data-scrolling="1"></div>`, "data-scroll", []string{}},
		{"case insensitive name", `<div id=a DATA-SCROLL=1></div>`, "Data-Scroll", []string{"div#a"}},
		{"many", `<a id=a data-scroll=1><b id=b data-scroll=2></b></a>`, "data-scroll", []string{"a#a", "b#b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := parser.Parse(tt.in).Root()
			assert.Equal(t, tt.expected, describe(ByAttributePresence(root, tt.attr)))
		})
	}
}

func TestByTagWithEmptyAttribute(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected []string
	}{
		{"absent", `<img id=a src="a.png">`, []string{"img#a"}},
		{"blank after trim", `<img id=a src="a.png" alt="  ">`, []string{"img#a"}},
		{"empty", `<img id=a alt="">`, []string{"img#a"}},
		{"whitespace kinds", "<img id=a alt=\"\t\n\">", []string{"img#a"}},
		{"non blank", `<img id=a src="a.png" alt="logo">`, []string{}},
		{"other tags ignored", `<div id=a></div><input id=b alt="">`, []string{}},
		{"upper case tag", `<IMG id=a>`, []string{"img#a"}},
		{"document order", `<img id=a><p><img id=b alt=x><img id=c alt=" "></p>`, []string{"img#a", "img#c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := parser.Parse(tt.in).Root()
			assert.Equal(t, tt.expected, describe(ByTagWithEmptyAttribute(root, "IMG", "Alt")))
		})
	}
}

func TestPredicateIDs(t *testing.T) {
	assert.Equal(t, "class:cp", Class("cp").ID())
	assert.Equal(t, "attr:data-scroll", AttributePresence("DATA-scroll").ID())
	assert.Equal(t, "empty:img[alt]", TagWithEmptyAttribute("IMG", "ALT").ID())

	assert.Equal(t, ClassKind, Class("cp").Kind())
	assert.Equal(t, PresenceKind, AttributePresence("x").Kind())
	assert.Equal(t, EmptyAttributeKind, TagWithEmptyAttribute("img", "alt").Kind())
	assert.Equal(t, "empty-attribute", EmptyAttributeKind.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{ClassKind, PresenceKind, EmptyAttributeKind} {
		t.Run(k.String(), func(t *testing.T) {
			text, err := k.MarshalText()
			require.NoError(t, err)
			var got Kind
			require.NoError(t, got.UnmarshalText(text))
			assert.Equal(t, k, got)
		})
	}

	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("Class")))
}

func TestRootIsNeverMatched(t *testing.T) {
	doc := parser.Parse("")
	root := doc.Root()
	assert.Empty(t, Select(root, TagWithEmptyAttribute("#document", "alt")))
	assert.Empty(t, ByClass(root, "cp"))
}

func TestSelectFromSubtree(t *testing.T) {
	root := parser.Parse(`<div id=outer class=cp><div id=inner class=cp></div></div><p id=after class=cp>`).Root()
	outer := ByClass(root, "cp")[0]
	assert.Equal(t, []string{"div#inner"}, describe(ByClass(outer, "cp")))
}

// Well-formed pages, where the tolerant builder and a full HTML5 parser
// must agree on every match.
var wellFormed = []string{
	`<html><head><title>t</title></head><body><img src="a.jpg"><img src="b.jpg" alt="ok"><div class="cp cdp_grid" id="x" data-scroll="1"></div></body></html>`,
	`<html><head></head><body><section class="brandpage"><ul><li class="cp">a</li><li class="cp x">b</li></ul><img alt=" " src="c.png"></section></body></html>`,
	`<html><head></head><body><div class="cdp_grid"><div class="cdp_grid"><span data-scroll class="cp">x</span></div></div><p>one</p><p class=" cp  brandpage ">two</p></body></html>`,
	`<html><head><style>.cp{color:red}</style><script>var s = "<div class=cp>";</script></head><body><img><img alt="logo"><br><div id="y" data-scroll=""></div></body></html>`,
}

func goqueryDescribe(s *goquery.Selection) []string {
	out := make([]string, 0, s.Length())
	s.Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("id")
		out = append(out, goquery.NodeName(sel)+"#"+id)
	})
	return out
}

func TestAgainstGoquery(t *testing.T) {
	for i, in := range wellFormed {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			t.Parallel()
			gq, err := goquery.NewDocumentFromReader(strings.NewReader(in))
			require.NoError(t, err)
			root := parser.Parse(in).Root()

			for _, class := range []string{"cp", "cdp_grid", "brandpage"} {
				assert.Equal(t, goqueryDescribe(gq.Find("."+class)), describe(ByClass(root, class)), class)
			}
			assert.Equal(t, goqueryDescribe(gq.Find("[data-scroll]")), describe(ByAttributePresence(root, "data-scroll")))

			emptyAlt := gq.Find("img").FilterFunction(func(_ int, s *goquery.Selection) bool {
				alt, ok := s.Attr("alt")
				return !ok || strings.TrimSpace(alt) == ""
			})
			assert.Equal(t, goqueryDescribe(emptyAlt), describe(ByTagWithEmptyAttribute(root, "img", "alt")))
		})
	}
}

func htmlElements(n *html.Node) []string {
	var out []string
	stack := []*html.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Type == html.ElementNode {
			out = append(out, cur.Data)
		}
		for c := cur.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return out
}

func TestDocumentOrderAgainstNetHTML(t *testing.T) {
	for i, in := range wellFormed {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			t.Parallel()
			ref, err := html.Parse(strings.NewReader(in))
			require.NoError(t, err)

			var got []string
			for e := range parser.Parse(in).Root().Descendants(false) {
				got = append(got, e.TagName())
			}
			assert.Equal(t, htmlElements(ref), got)
		})
	}
}
