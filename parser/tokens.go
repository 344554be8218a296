package parser

import (
	"fmt"
	"strings"

	"github.com/heathj/pagecheck/parser/dom"
)

type TokenType uint

const (
	TextToken TokenType = iota
	StartTagToken
	EndTagToken
	EndOfFileToken
	CommentToken
	DocTypeToken
)

func (t TokenType) String() string {
	switch t {
	case TextToken:
		return "Text"
	case StartTagToken:
		return "StartTag"
	case EndTagToken:
		return "EndTag"
	case EndOfFileToken:
		return "EndOfFile"
	case CommentToken:
		return "Comment"
	case DocTypeToken:
		return "DocType"
	default:
		return fmt.Sprintf("TokenType(%d)", uint(t))
	}
}

type tagType uint

const (
	startTag tagType = iota
	endTag
)

// Token is a concrete token that is ready to be emitted. Attributes keep
// source order and duplicates; the element model resolves them.
type Token struct {
	TokenType   TokenType
	TagName     string
	Attributes  []dom.Attribute
	SelfClosing bool
	Data        string
}

func (t Token) String() string {
	switch t.TokenType {
	case StartTagToken:
		var sb strings.Builder
		sb.WriteString("<" + t.TagName)
		for _, a := range t.Attributes {
			sb.WriteString(" " + a.Name + "=" + fmt.Sprintf("%q", a.Value))
		}
		if t.SelfClosing {
			sb.WriteString(" /")
		}
		sb.WriteString(">")
		return sb.String()
	case EndTagToken:
		return "</" + t.TagName + ">"
	case CommentToken:
		return "<!--" + t.Data + "-->"
	case DocTypeToken:
		return "<!DOCTYPE " + t.Data + ">"
	case EndOfFileToken:
		return "EOF"
	default:
		return fmt.Sprintf("%q", t.Data)
	}
}

// Equal compares two tokens field by field.
func (t Token) Equal(o Token) bool {
	if t.TokenType != o.TokenType || t.TagName != o.TagName ||
		t.SelfClosing != o.SelfClosing || t.Data != o.Data ||
		len(t.Attributes) != len(o.Attributes) {
		return false
	}
	for i := range t.Attributes {
		if t.Attributes[i] != o.Attributes[i] {
			return false
		}
	}
	return true
}

// TokenBuilder builds various tokens up during the tokenization
// phase.
type TokenBuilder struct {
	attributes     []dom.Attribute
	attributeKey   strings.Builder
	attributeValue strings.Builder
	name           strings.Builder
	data           strings.Builder
	text           strings.Builder
	tempBuffer     strings.Builder
	selfClosing    bool
	curTagType     tagType
	// decodeText is false while inside script/style style raw text.
	decodeText bool
}

func newTokenBuilder() *TokenBuilder {
	return &TokenBuilder{decodeText: true}
}

// Reset clears everything that belongs to the tag or comment being built.
// Pending text is kept: it is flushed separately.
func (t *TokenBuilder) Reset() {
	t.attributes = nil
	t.attributeKey.Reset()
	t.attributeValue.Reset()
	t.data.Reset()
	t.name.Reset()
	t.selfClosing = false
}

// EnableSelfClosing changes to the self-closing flag to "set".
func (t *TokenBuilder) EnableSelfClosing() {
	t.selfClosing = true
}

// WriteAttributeName appends a character to the current
// attribute's name.
func (t *TokenBuilder) WriteAttributeName(r rune) {
	t.attributeKey.WriteRune(r)
}

// WriteAttributeValue appends a character to the current
// attribute's value.
func (t *TokenBuilder) WriteAttributeValue(r rune) {
	t.attributeValue.WriteRune(r)
}

// WriteName appends a character to the current name value.
func (t *TokenBuilder) WriteName(r rune) {
	t.name.WriteRune(r)
}

// WriteData appends a character to the current comment or doctype.
func (t *TokenBuilder) WriteData(r rune) {
	t.data.WriteRune(r)
}

// WriteText appends a character to the pending text run.
func (t *TokenBuilder) WriteText(r rune) {
	t.text.WriteRune(r)
}

// WriteTextString appends several characters to the pending text run.
func (t *TokenBuilder) WriteTextString(s string) {
	t.text.WriteString(s)
}

// CommitAttribute ends the creation of a key/value
// pair by copying the name and value fields into the
// attribute list and clearing the name and value fields.
func (t *TokenBuilder) CommitAttribute() {
	k := t.attributeKey.String()
	if k != "" {
		t.attributes = append(t.attributes, dom.Attribute{
			Name:  k,
			Value: unescapeAttribute(t.attributeValue.String()),
		})
	}
	t.attributeKey.Reset()
	t.attributeValue.Reset()
}

// WriteTempBuffer appends a character to the temporary buffer of the current
// state.
func (t *TokenBuilder) WriteTempBuffer(r rune) {
	t.tempBuffer.WriteRune(r)
}

// ResetTempBuffer clears the temporary buffer to be used by some other state.
func (t *TokenBuilder) ResetTempBuffer() {
	t.tempBuffer.Reset()
}

// TempBuffer just returns the string version of the current buffer conents.
func (t *TokenBuilder) TempBuffer() string {
	return t.tempBuffer.String()
}

// PendingText reports whether a text run is waiting to be flushed.
func (t *TokenBuilder) PendingText() bool {
	return t.text.Len() > 0
}

// TextToken drains the pending text run into a text token.
func (t *TokenBuilder) TextToken() Token {
	s := t.text.String()
	t.text.Reset()
	if t.decodeText {
		s = unescape(s)
	}
	return Token{
		TokenType: TextToken,
		Data:      s,
	}
}

// StartTagToken creates a start tag token from the builder
// contents.
func (t *TokenBuilder) StartTagToken() Token {
	return Token{
		TokenType:   StartTagToken,
		TagName:     t.name.String(),
		Attributes:  t.attributes,
		SelfClosing: t.selfClosing,
	}
}

// EndTagToken creates an end tag token from the builder
// contents. End tags never carry attributes or the self-closing flag.
func (t *TokenBuilder) EndTagToken() Token {
	return Token{
		TokenType: EndTagToken,
		TagName:   t.name.String(),
	}
}

// EndOfFileToken create an end of file token.
func (t *TokenBuilder) EndOfFileToken() Token {
	return Token{
		TokenType: EndOfFileToken,
	}
}

// CommentToken creates a comment token from the builder contents.
func (t *TokenBuilder) CommentToken() Token {
	return Token{
		TokenType: CommentToken,
		Data:      t.data.String(),
	}
}

// DocTypeToken creates a doc type token from the builder contents.
func (t *TokenBuilder) DocTypeToken() Token {
	return Token{
		TokenType: DocTypeToken,
		Data:      strings.TrimSpace(t.data.String()),
	}
}
