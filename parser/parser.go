package parser

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/heathj/pagecheck/parser/dom"
)

type options struct {
	log          *logrus.Logger
	keepComments bool
}

// Option configures the tokenizer and tree constructor.
type Option func(*options)

// WithLogger routes debug tracing to l instead of the standard logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithComments keeps comment nodes in the tree. They are dropped otherwise.
func WithComments() Option {
	return func(o *options) { o.keepComments = true }
}

func newOptions(opts []Option) options {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type Parser struct {
	Tokenizer       *HTMLTokenizer
	TreeConstructor *HTMLTreeConstructor
}

func NewParser(htmlIn io.Reader, opts ...Option) *Parser {
	return &Parser{
		Tokenizer:       NewHTMLTokenizer(htmlIn, opts...),
		TreeConstructor: NewHTMLTreeConstructor(opts...),
	}
}

// Start drives the tokenizer into the tree constructor until end of input
// and returns the finished document. The error is only ever a read error;
// the tree built from what was read is returned alongside it.
func (p *Parser) Start() (*dom.Document, error) {
	for p.Tokenizer.Next() {
		p.TreeConstructor.ProcessToken(p.Tokenizer.Token())
	}
	return p.TreeConstructor.Document(), p.Tokenizer.Err()
}

// Parse builds the element tree of a complete HTML document. It accepts any
// text and never fails; garbage yields a root with few or no elements.
func Parse(html string, opts ...Option) *dom.Document {
	doc, _ := NewParser(strings.NewReader(html), opts...).Start()
	return doc
}

// ParseReader is Parse over a stream. Malformed markup is never an error.
func ParseReader(r io.Reader, opts ...Option) (*dom.Document, error) {
	doc, err := NewParser(r, opts...).Start()
	if err != nil {
		return doc, errors.WithMessage(err, "parse html")
	}
	return doc, nil
}
