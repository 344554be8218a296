package parser

import (
	"github.com/sirupsen/logrus"

	"github.com/heathj/pagecheck/parser/dom"
)

// voidElements never have content, so their start tag is never pushed on
// the stack of open elements.
var voidElements = map[string]struct{}{
	"area":   {},
	"base":   {},
	"br":     {},
	"col":    {},
	"embed":  {},
	"hr":     {},
	"img":    {},
	"input":  {},
	"keygen": {},
	"link":   {},
	"meta":   {},
	"param":  {},
	"source": {},
	"track":  {},
	"wbr":    {},
}

var pClosers = set(
	"address", "article", "aside", "blockquote", "center", "details", "dialog",
	"dir", "div", "dl", "fieldset", "figcaption", "figure", "footer", "form",
	"h1", "h2", "h3", "h4", "h5", "h6", "header", "hgroup", "hr", "main", "menu",
	"nav", "ol", "p", "pre", "section", "summary", "table", "ul",
)

var headings = set("h1", "h2", "h3", "h4", "h5", "h6")

// closedByOpening maps an open element to the start tags that implicitly
// end it when it is the current node.
var closedByOpening = map[string]map[string]struct{}{
	"p":        pClosers,
	"li":       set("li"),
	"dt":       set("dt", "dd"),
	"dd":       set("dt", "dd"),
	"option":   set("option", "optgroup"),
	"optgroup": set("optgroup"),
	"tr":       set("tr", "tbody", "thead", "tfoot"),
	"td":       set("td", "th", "tr", "tbody", "thead", "tfoot"),
	"th":       set("td", "th", "tr", "tbody", "thead", "tfoot"),
	"thead":    set("tbody", "tfoot"),
	"tbody":    set("tbody", "tfoot"),
	"rt":       set("rt", "rp"),
	"rp":       set("rt", "rp"),
	"h1":       headings,
	"h2":       headings,
	"h3":       headings,
	"h4":       headings,
	"h5":       headings,
	"h6":       headings,
}

// scopedClose names the open elements a start tag ends even when they are
// not the current node. The scan down the stack stops at a boundary.
type scopedClose struct {
	targets    map[string]struct{}
	boundaries map[string]struct{}
}

var (
	listItemClose   = scopedClose{set("li"), set("ul", "ol", "menu", "table")}
	definitionClose = scopedClose{set("dt", "dd"), set("dl", "table")}
	cellClose       = scopedClose{set("td", "th"), set("tr", "table")}
)

var closesNearest = map[string]scopedClose{
	"li": listItemClose,
	"dt": definitionClose,
	"dd": definitionClose,
	"tr": {set("tr"), set("table")},
	"td": cellClose,
	"th": cellClose,
}

func set(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Stats counts what the tree constructor did with the token stream.
type Stats struct {
	// StartTags is the number of start tags that became elements.
	StartTags int
	// ImpliedEndTags counts elements closed without their own end tag.
	ImpliedEndTags int
	// DiscardedEndTags counts end tags that matched no open element.
	DiscardedEndTags int
}

// HTMLTreeConstructor holds the state for the tree construction phase. It
// keeps an explicit stack of open elements and never recurses.
type HTMLTreeConstructor struct {
	builder             *dom.Builder
	stackOfOpenElements []dom.NodeID
	keepComments        bool
	stats               Stats
	done                bool
	log                 *logrus.Logger
}

// NewHTMLTreeConstructor creates an HTMLTreeConstructor.
func NewHTMLTreeConstructor(opts ...Option) *HTMLTreeConstructor {
	o := newOptions(opts)
	return &HTMLTreeConstructor{
		builder:      dom.NewBuilder(),
		keepComments: o.keepComments,
		log:          o.log,
	}
}

// getCurrentNode returns the bottommost node of the stack of open
// elements, or the document root when the stack is empty.
func (c *HTMLTreeConstructor) getCurrentNode() dom.NodeID {
	if len(c.stackOfOpenElements) == 0 {
		return c.builder.Root()
	}
	return c.stackOfOpenElements[len(c.stackOfOpenElements)-1]
}

func (c *HTMLTreeConstructor) currentTagName() string {
	if len(c.stackOfOpenElements) == 0 {
		return ""
	}
	return c.builder.TagName(c.getCurrentNode())
}

func (c *HTMLTreeConstructor) pop() dom.NodeID {
	last := len(c.stackOfOpenElements) - 1
	id := c.stackOfOpenElements[last]
	c.stackOfOpenElements = c.stackOfOpenElements[:last]
	return id
}

// ProcessToken feeds one token into the tree.
func (c *HTMLTreeConstructor) ProcessToken(t Token) {
	if c.done {
		return
	}
	switch t.TokenType {
	case StartTagToken:
		c.insertStartTag(t)
	case EndTagToken:
		c.closeElement(t.TagName)
	case TextToken:
		c.builder.AppendText(c.getCurrentNode(), t.Data)
	case CommentToken:
		if c.keepComments {
			c.builder.AppendComment(c.getCurrentNode(), t.Data)
		}
	case DocTypeToken:
	case EndOfFileToken:
		c.stopParsing()
	}
}

func (c *HTMLTreeConstructor) insertStartTag(t Token) {
	if rule, ok := closesNearest[t.TagName]; ok {
		c.closeNearest(rule, t.TagName)
	}
	for {
		closers, ok := closedByOpening[c.currentTagName()]
		if !ok {
			break
		}
		if _, closes := closers[t.TagName]; !closes {
			break
		}
		c.popImplied(t.TagName)
	}

	id := c.builder.AppendElement(c.getCurrentNode(), t.TagName, t.Attributes)
	c.stats.StartTags++

	if _, void := voidElements[t.TagName]; void || t.SelfClosing {
		return
	}
	c.stackOfOpenElements = append(c.stackOfOpenElements, id)
}

// closeNearest pops through the nearest open target of rule, if one is in
// scope.
func (c *HTMLTreeConstructor) closeNearest(rule scopedClose, by string) {
	for i := len(c.stackOfOpenElements) - 1; i >= 0; i-- {
		name := c.builder.TagName(c.stackOfOpenElements[i])
		if _, ok := rule.targets[name]; ok {
			for len(c.stackOfOpenElements) > i {
				c.popImplied(by)
			}
			return
		}
		if _, ok := rule.boundaries[name]; ok {
			return
		}
	}
}

func (c *HTMLTreeConstructor) popImplied(by string) {
	implied := c.pop()
	c.stats.ImpliedEndTags++
	c.log.WithFields(logrus.Fields{
		"closed": c.builder.TagName(implied),
		"by":     by,
	}).Debug("[TREE] implied end tag")
}

// closeElement pops up to and including the nearest open element with the
// given name. Elements above it are closed implicitly. An end tag with no
// open match is dropped.
func (c *HTMLTreeConstructor) closeElement(name string) {
	for i := len(c.stackOfOpenElements) - 1; i >= 0; i-- {
		if c.builder.TagName(c.stackOfOpenElements[i]) != name {
			continue
		}
		for len(c.stackOfOpenElements) > i+1 {
			c.popImplied("/" + name)
		}
		c.pop()
		return
	}

	c.stats.DiscardedEndTags++
	c.log.WithField("tag", name).Debug("[TREE] discarded unmatched end tag")
}

func (c *HTMLTreeConstructor) stopParsing() {
	c.stats.ImpliedEndTags += len(c.stackOfOpenElements)
	c.stackOfOpenElements = c.stackOfOpenElements[:0]
	c.done = true
}

// Document returns the tree built so far. After the end-of-file token it
// is complete.
func (c *HTMLTreeConstructor) Document() *dom.Document {
	return c.builder.Document()
}

// Stats reports counters collected while building.
func (c *HTMLTreeConstructor) Stats() Stats {
	return c.stats
}
