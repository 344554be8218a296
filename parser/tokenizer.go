package parser

import (
	"bufio"
	"bytes"
	"io"
	"iter"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// HTMLTokenizer holds state for the various state of the tokenizer.
type HTMLTokenizer struct {
	done                      bool
	err                       error
	returnState, currentState tokenizerState
	inputStream               *bufio.Reader
	emittedTokens             []Token
	tokenBuilder              *TokenBuilder
	lastEmittedStartTagName   string
	log                       *logrus.Logger
}

// NewHTMLTokenizer creates an HTML tokenizer that can be used to process
// an HTML stream.
func NewHTMLTokenizer(r io.Reader, opts ...Option) *HTMLTokenizer {
	o := newOptions(opts)
	return &HTMLTokenizer{
		inputStream:  bufio.NewReader(r),
		tokenBuilder: newTokenBuilder(),
		currentState: dataState,
		log:          o.log,
	}
}

// elements whose content is not markup. The bool says whether character
// references are still decoded inside them.
var textOnlyElements = map[string]bool{
	"script":   false,
	"style":    false,
	"xmp":      false,
	"iframe":   false,
	"noembed":  false,
	"noframes": false,
	"noscript": false,
	"textarea": true,
	"title":    true,
}

func (p *HTMLTokenizer) stateToParser(state tokenizerState) parserStateHandler {
	switch state {
	case dataState:
		return p.dataStateParser
	case rawTextState, rcDataState:
		return p.rawTextStateParser
	case tagOpenState:
		return p.tagOpenStateParser
	case endTagOpenState:
		return p.endTagOpenStateParser
	case tagNameState:
		return p.tagNameStateParser
	case rawTextLessThanSignState:
		return p.rawTextLessThanSignStateParser
	case rawTextEndTagOpenState:
		return p.rawTextEndTagOpenStateParser
	case rawTextEndTagNameState:
		return p.rawTextEndTagNameStateParser
	case beforeAttributeNameState:
		return p.beforeAttributeNameStateParser
	case attributeNameState:
		return p.attributeNameStateParser
	case afterAttributeNameState:
		return p.afterAttributeNameStateParser
	case beforeAttributeValueState:
		return p.beforeAttributeValueStateParser
	case attributeValueDoubleQuotedState:
		return p.attributeValueDoubleQuotedStateParser
	case attributeValueSingleQuotedState:
		return p.attributeValueSingleQuotedStateParser
	case attributeValueUnquotedState:
		return p.attributeValueUnquotedStateParser
	case afterAttributeValueQuotedState:
		return p.afterAttributeValueQuotedStateParser
	case selfClosingStartTagState:
		return p.selfClosingStartTagStateParser
	case bogusCommentState:
		return p.bogusCommentStateParser
	case markupDeclarationOpenState:
		return p.markupDeclarationOpenStateParser
	case commentStartState:
		return p.commentStartStateParser
	case commentStartDashState:
		return p.commentStartDashStateParser
	case commentState:
		return p.commentStateParser
	case commentEndDashState:
		return p.commentEndDashStateParser
	case commentEndState:
		return p.commentEndStateParser
	case commentEndBangState:
		return p.commentEndBangStateParser
	case doctypeState:
		return p.doctypeStateParser
	}

	return p.dataStateParser
}

func isASCIIAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// unescape decodes character references. A bare or unknown "&...;" is left
// untouched.
func unescape(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return html.UnescapeString(s)
}

func isASCIIAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// unescapeAttribute decodes character references in an attribute value. A
// named reference missing its semicolon stays literal when "=" or an
// alphanumeric follows it, so query strings like "?a=1&copy=2" survive.
func unescapeAttribute(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var sb strings.Builder
	for {
		i := strings.IndexByte(s, '&')
		if i < 0 {
			sb.WriteString(s)
			return sb.String()
		}
		sb.WriteString(s[:i])
		s = s[i:]

		if len(s) > 1 && s[1] == '#' {
			// numeric references decode the same everywhere.
			j := 2
			for j < len(s) && isASCIIAlnum(s[j]) {
				j++
			}
			if j < len(s) && s[j] == ';' {
				j++
			}
			sb.WriteString(html.UnescapeString(s[:j]))
			s = s[j:]
			continue
		}

		j := 1
		for j < len(s) && isASCIIAlnum(s[j]) {
			j++
		}
		ref := s[:j]
		decoded := html.UnescapeString(ref)
		terminated := j < len(s) && s[j] == ';'
		switch {
		case terminated:
			whole := html.UnescapeString(s[:j+1])
			if strings.HasSuffix(whole, ";") && whole != ";" {
				whole = s[:j+1]
			}
			sb.WriteString(whole)
			s = s[j+1:]
			continue
		case decoded == ref, j < len(s) && s[j] == '=', isASCIIAlnum(decoded[len(decoded)-1]):
			sb.WriteString(ref)
		default:
			sb.WriteString(decoded)
		}
		s = s[j:]
	}
}

func (p *HTMLTokenizer) isApprEndTagToken() bool {
	return p.lastEmittedStartTagName == p.tokenBuilder.name.String()
}

// emit queues tokens, flushing any pending text run in front of them so
// text always keeps its place in the stream.
func (p *HTMLTokenizer) emit(tokens ...Token) {
	for _, token := range tokens {
		if token.TokenType != TextToken && p.tokenBuilder.PendingText() {
			p.emittedTokens = append(p.emittedTokens, p.tokenBuilder.TextToken())
		}
		if token.TokenType == StartTagToken {
			p.lastEmittedStartTagName = token.TagName
		}
		p.emittedTokens = append(p.emittedTokens, token)
	}
}

func (p *HTMLTokenizer) emitEOF() (bool, tokenizerState) {
	p.emit(p.tokenBuilder.EndOfFileToken())
	return false, dataState
}

func (p *HTMLTokenizer) dataStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return p.emitEOF()
	}
	switch r {
	case '<':
		return false, tagOpenState
	case '\u0000':
		p.tokenBuilder.WriteText('\uFFFD')
		return false, dataState
	default:
		p.tokenBuilder.WriteText(r)
		return false, dataState
	}
}

// rawTextStateParser covers both raw text (script, style) and escapable raw
// text (textarea, title); they only differ in whether references decode.
func (p *HTMLTokenizer) rawTextStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return p.emitEOF()
	}
	switch r {
	case '<':
		return false, rawTextLessThanSignState
	case '\u0000':
		p.tokenBuilder.WriteText('\uFFFD')
		return false, p.returnState
	default:
		p.tokenBuilder.WriteText(r)
		return false, p.returnState
	}
}

func (p *HTMLTokenizer) tagOpenStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.tokenBuilder.WriteText('<')
		return p.emitEOF()
	}
	switch {
	case r == '!':
		return false, markupDeclarationOpenState
	case r == '/':
		return false, endTagOpenState
	case isASCIIAlpha(r):
		p.tokenBuilder.Reset()
		p.tokenBuilder.curTagType = startTag
		return true, tagNameState
	case r == '?':
		p.tokenBuilder.Reset()
		return true, bogusCommentState
	default:
		p.tokenBuilder.WriteText('<')
		return true, dataState
	}
}

func (p *HTMLTokenizer) endTagOpenStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.tokenBuilder.WriteTextString("</")
		return p.emitEOF()
	}
	switch {
	case isASCIIAlpha(r):
		p.tokenBuilder.Reset()
		p.tokenBuilder.curTagType = endTag
		return true, tagNameState
	case r == '>':
		return false, dataState
	default:
		p.tokenBuilder.Reset()
		return true, bogusCommentState
	}
}

func (p *HTMLTokenizer) tagNameStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return p.emitEOF()
	}
	switch {
	case r == '\u0009', r == '\u000A', r == '\u000C', r == ' ':
		return false, beforeAttributeNameState
	case r == '/':
		return false, selfClosingStartTagState
	case r == '>':
		return false, p.emitCurrentTag()
	case isASCIIUpper(r):
		p.tokenBuilder.WriteName(r + 0x20)
		return false, tagNameState
	case r == '\u0000':
		p.tokenBuilder.WriteName('\uFFFD')
		return false, tagNameState
	default:
		p.tokenBuilder.WriteName(r)
		return false, tagNameState
	}
}

func (p *HTMLTokenizer) rawTextLessThanSignStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.tokenBuilder.WriteText('<')
		return true, p.returnState
	}
	switch r {
	case '/':
		p.tokenBuilder.ResetTempBuffer()
		return false, rawTextEndTagOpenState
	default:
		p.tokenBuilder.WriteText('<')
		return true, p.returnState
	}
}

func (p *HTMLTokenizer) defaultRawTextEndTagOpenStateParser() (bool, tokenizerState) {
	p.tokenBuilder.WriteTextString("</")
	return true, p.returnState
}

func (p *HTMLTokenizer) rawTextEndTagOpenStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return p.defaultRawTextEndTagOpenStateParser()
	}
	if isASCIIAlpha(r) {
		p.tokenBuilder.Reset()
		p.tokenBuilder.curTagType = endTag
		return true, rawTextEndTagNameState
	}
	return p.defaultRawTextEndTagOpenStateParser()
}

func (p *HTMLTokenizer) defaultRawTextEndTagNameStateCase() (bool, tokenizerState) {
	p.tokenBuilder.WriteTextString("</")
	p.tokenBuilder.WriteTextString(p.tokenBuilder.TempBuffer())
	return true, p.returnState
}

func (p *HTMLTokenizer) rawTextEndTagNameStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return p.defaultRawTextEndTagNameStateCase()
	}
	switch {
	case r == '\u0009', r == '\u000A', r == '\u000C', r == ' ':
		if p.isApprEndTagToken() {
			return false, beforeAttributeNameState
		}
		return p.defaultRawTextEndTagNameStateCase()
	case r == '/':
		if p.isApprEndTagToken() {
			return false, selfClosingStartTagState
		}
		return p.defaultRawTextEndTagNameStateCase()
	case r == '>':
		if p.isApprEndTagToken() {
			return false, p.emitCurrentTag()
		}
		return p.defaultRawTextEndTagNameStateCase()
	case isASCIIUpper(r):
		p.tokenBuilder.WriteTempBuffer(r)
		p.tokenBuilder.WriteName(r + 0x20)
		return false, rawTextEndTagNameState
	case isASCIIAlpha(r):
		p.tokenBuilder.WriteTempBuffer(r)
		p.tokenBuilder.WriteName(r)
		return false, rawTextEndTagNameState
	default:
		return p.defaultRawTextEndTagNameStateCase()
	}
}

func (p *HTMLTokenizer) beforeAttributeNameStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return true, afterAttributeNameState
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		return false, beforeAttributeNameState
	case '/', '>':
		return true, afterAttributeNameState
	case '=':
		// set that attribute's name to the current input character, and its value to the empty string.
		p.tokenBuilder.WriteAttributeName(r)
		return false, attributeNameState
	default:
		return true, attributeNameState
	}
}

func (p *HTMLTokenizer) attributeNameStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.tokenBuilder.CommitAttribute()
		return true, afterAttributeNameState
	}
	switch {
	case r == '\u0009', r == '\u000A', r == '\u000C', r == ' ', r == '/', r == '>':
		p.tokenBuilder.CommitAttribute()
		return true, afterAttributeNameState
	case r == '=':
		return false, beforeAttributeValueState
	case isASCIIUpper(r):
		p.tokenBuilder.WriteAttributeName(r + 0x20)
		return false, attributeNameState
	case r == '\u0000':
		p.tokenBuilder.WriteAttributeName('\uFFFD')
		return false, attributeNameState
	default:
		p.tokenBuilder.WriteAttributeName(r)
		return false, attributeNameState
	}
}

func (p *HTMLTokenizer) afterAttributeNameStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return p.emitEOF()
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		return false, afterAttributeNameState
	case '/':
		return false, selfClosingStartTagState
	case '=':
		return false, beforeAttributeValueState
	case '>':
		return false, p.emitCurrentTag()
	default:
		return true, attributeNameState
	}
}

func (p *HTMLTokenizer) beforeAttributeValueStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return true, attributeValueUnquotedState
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		return false, beforeAttributeValueState
	case '"':
		return false, attributeValueDoubleQuotedState
	case '\'':
		return false, attributeValueSingleQuotedState
	case '>':
		p.tokenBuilder.CommitAttribute()
		return false, p.emitCurrentTag()
	default:
		return true, attributeValueUnquotedState
	}
}

func (p *HTMLTokenizer) attributeValueQuotedStateParser(r rune, eof bool, quote rune, self tokenizerState) (bool, tokenizerState) {
	if eof {
		return p.emitEOF()
	}
	switch r {
	case quote:
		p.tokenBuilder.CommitAttribute()
		return false, afterAttributeValueQuotedState
	case '\u0000':
		p.tokenBuilder.WriteAttributeValue('\uFFFD')
		return false, self
	default:
		p.tokenBuilder.WriteAttributeValue(r)
		return false, self
	}
}

func (p *HTMLTokenizer) attributeValueDoubleQuotedStateParser(r rune, eof bool) (bool, tokenizerState) {
	return p.attributeValueQuotedStateParser(r, eof, '"', attributeValueDoubleQuotedState)
}

func (p *HTMLTokenizer) attributeValueSingleQuotedStateParser(r rune, eof bool) (bool, tokenizerState) {
	return p.attributeValueQuotedStateParser(r, eof, '\'', attributeValueSingleQuotedState)
}

func (p *HTMLTokenizer) attributeValueUnquotedStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return p.emitEOF()
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		p.tokenBuilder.CommitAttribute()
		return false, beforeAttributeNameState
	case '>':
		p.tokenBuilder.CommitAttribute()
		return false, p.emitCurrentTag()
	case '\u0000':
		p.tokenBuilder.WriteAttributeValue('\uFFFD')
		return false, attributeValueUnquotedState
	default:
		p.tokenBuilder.WriteAttributeValue(r)
		return false, attributeValueUnquotedState
	}
}

func (p *HTMLTokenizer) afterAttributeValueQuotedStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return p.emitEOF()
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		return false, beforeAttributeNameState
	case '/':
		return false, selfClosingStartTagState
	case '>':
		return false, p.emitCurrentTag()
	default:
		return true, beforeAttributeNameState
	}
}

func (p *HTMLTokenizer) selfClosingStartTagStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return p.emitEOF()
	}
	switch r {
	case '>':
		p.tokenBuilder.EnableSelfClosing()
		return false, p.emitCurrentTag()
	default:
		return true, beforeAttributeNameState
	}
}

func (p *HTMLTokenizer) bogusCommentStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.emit(p.tokenBuilder.CommentToken())
		return p.emitEOF()
	}
	switch r {
	case '>':
		p.emit(p.tokenBuilder.CommentToken())
		return false, dataState
	case '\u0000':
		p.tokenBuilder.WriteData('\uFFFD')
		return false, bogusCommentState
	default:
		p.tokenBuilder.WriteData(r)
		return false, bogusCommentState
	}
}

// used below to look for peeking at what state to jump to next
var doctype = []byte("octype")
var cdata = []byte("CDATA[")
var peekDist = 6

func (p *HTMLTokenizer) defaultMarkupDeclarationOpenStateParser() (bool, tokenizerState) {
	p.tokenBuilder.Reset()
	return true, bogusCommentState
}

func (p *HTMLTokenizer) markupDeclarationOpenStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.tokenBuilder.Reset()
		return true, bogusCommentState
	}

	switch r {
	case '-':
		peeked, _ := p.inputStream.Peek(1)
		if len(peeked) == 1 && peeked[0] == '-' {
			p.inputStream.Discard(1)
			p.tokenBuilder.Reset()
			return false, commentStartState
		}
	case 'D', 'd':
		peeked, _ := p.inputStream.Peek(peekDist)
		if bytes.EqualFold(peeked, doctype) {
			p.inputStream.Discard(peekDist)
			p.tokenBuilder.Reset()
			return false, doctypeState
		}
	case '[':
		peeked, _ := p.inputStream.Peek(peekDist)
		if bytes.Equal(cdata, peeked) {
			// CDATA only exists in foreign content; in HTML it is a bogus comment.
			p.inputStream.Discard(peekDist)
			p.tokenBuilder.Reset()
			for _, c := range "[CDATA[" {
				p.tokenBuilder.WriteData(c)
			}
			return false, bogusCommentState
		}
	}

	return p.defaultMarkupDeclarationOpenStateParser()
}

func (p *HTMLTokenizer) commentStartStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		return true, commentState
	}
	switch r {
	case '-':
		return false, commentStartDashState
	case '>':
		p.emit(p.tokenBuilder.CommentToken())
		return false, dataState
	default:
		return true, commentState
	}
}

func (p *HTMLTokenizer) commentStartDashStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.emit(p.tokenBuilder.CommentToken())
		return p.emitEOF()
	}
	switch r {
	case '-':
		return false, commentEndState
	case '>':
		p.emit(p.tokenBuilder.CommentToken())
		return false, dataState
	default:
		p.tokenBuilder.WriteData('-')
		return true, commentState
	}
}

func (p *HTMLTokenizer) commentStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.emit(p.tokenBuilder.CommentToken())
		return p.emitEOF()
	}
	switch r {
	case '-':
		return false, commentEndDashState
	case '\u0000':
		p.tokenBuilder.WriteData('\uFFFD')
		return false, commentState
	default:
		p.tokenBuilder.WriteData(r)
		return false, commentState
	}
}

func (p *HTMLTokenizer) commentEndDashStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.emit(p.tokenBuilder.CommentToken())
		return p.emitEOF()
	}
	switch r {
	case '-':
		return false, commentEndState
	default:
		p.tokenBuilder.WriteData('-')
		return true, commentState
	}
}

func (p *HTMLTokenizer) commentEndStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.emit(p.tokenBuilder.CommentToken())
		return p.emitEOF()
	}
	switch r {
	case '>':
		p.emit(p.tokenBuilder.CommentToken())
		return false, dataState
	case '!':
		return false, commentEndBangState
	case '-':
		p.tokenBuilder.WriteData('-')
		return false, commentEndState
	default:
		p.tokenBuilder.WriteData('-')
		p.tokenBuilder.WriteData('-')
		return true, commentState
	}
}

func (p *HTMLTokenizer) commentEndBangStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.emit(p.tokenBuilder.CommentToken())
		return p.emitEOF()
	}
	switch r {
	case '-':
		p.tokenBuilder.WriteData('-')
		p.tokenBuilder.WriteData('-')
		p.tokenBuilder.WriteData('!')
		return false, commentEndDashState
	case '>':
		p.emit(p.tokenBuilder.CommentToken())
		return false, dataState
	default:
		p.tokenBuilder.WriteData('-')
		p.tokenBuilder.WriteData('-')
		p.tokenBuilder.WriteData('!')
		return true, commentState
	}
}

// doctypeStateParser keeps the whole declaration as opaque data; nothing
// downstream looks at the public or system identifiers.
func (p *HTMLTokenizer) doctypeStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		p.emit(p.tokenBuilder.DocTypeToken())
		return p.emitEOF()
	}
	switch r {
	case '>':
		p.emit(p.tokenBuilder.DocTypeToken())
		return false, dataState
	case '\u0000':
		p.tokenBuilder.WriteData('\uFFFD')
		return false, doctypeState
	default:
		p.tokenBuilder.WriteData(r)
		return false, doctypeState
	}
}

func (p *HTMLTokenizer) emitCurrentTag() tokenizerState {
	switch p.tokenBuilder.curTagType {
	case startTag:
		t := p.tokenBuilder.StartTagToken()
		p.emit(t)
		if decode, ok := textOnlyElements[t.TagName]; ok && !t.SelfClosing {
			p.tokenBuilder.decodeText = decode
			if decode {
				p.returnState = rcDataState
			} else {
				p.returnState = rawTextState
			}
			return p.returnState
		}
	case endTag:
		p.emit(p.tokenBuilder.EndTagToken())
		p.tokenBuilder.decodeText = true
	}

	return dataState
}

// a stateHandler is a func that takes in a rune and a bool representing the endoffile
// and returns whether to reconsume the rune and the next state to transition to.
type parserStateHandler func(in rune, eof bool) (bool, tokenizerState)

type tokenizerState uint

const (
	dataState tokenizerState = iota
	rcDataState
	rawTextState
	tagOpenState
	endTagOpenState
	tagNameState
	rawTextLessThanSignState
	rawTextEndTagOpenState
	rawTextEndTagNameState
	beforeAttributeNameState
	attributeNameState
	afterAttributeNameState
	beforeAttributeValueState
	attributeValueDoubleQuotedState
	attributeValueSingleQuotedState
	attributeValueUnquotedState
	afterAttributeValueQuotedState
	selfClosingStartTagState
	bogusCommentState
	markupDeclarationOpenState
	commentStartState
	commentStartDashState
	commentState
	commentEndDashState
	commentEndState
	commentEndBangState
	doctypeState
)

var tokenizerStateNames = [...]string{
	"data", "rcdata", "rawtext", "tag open", "end tag open", "tag name",
	"rawtext less-than sign", "rawtext end tag open", "rawtext end tag name",
	"before attribute name", "attribute name", "after attribute name",
	"before attribute value", "attribute value (double-quoted)",
	"attribute value (single-quoted)", "attribute value (unquoted)",
	"after attribute value (quoted)", "self-closing start tag", "bogus comment",
	"markup declaration open", "comment start", "comment start dash", "comment",
	"comment end dash", "comment end", "comment end bang", "doctype",
}

func (s tokenizerState) String() string {
	if int(s) < len(tokenizerStateNames) {
		return tokenizerStateNames[s]
	}
	return "unknown"
}

func (p *HTMLTokenizer) normalizeNewlines(r rune) rune {
	if r == '\u000D' {
		b, err := p.inputStream.Peek(1)
		if err != nil {
			return '\u000A'
		}
		if len(b) > 0 && b[0] == '\u000A' {
			p.inputStream.Discard(1)
		}

		return '\u000A'
	}

	return r
}

func (p *HTMLTokenizer) takeLastEmittedToken() (Token, bool) {
	if len(p.emittedTokens) > 0 {
		ret := p.emittedTokens[0]
		p.emittedTokens = p.emittedTokens[1:]
		if ret.TokenType == EndOfFileToken {
			p.done = true
		}
		return ret, true
	}
	return Token{}, false
}

// Next reports whether another token can be read. It turns false once the
// end-of-file token has been handed out.
func (p *HTMLTokenizer) Next() bool {
	return !p.done
}

// Token returns the next token. Malformed markup never stops the stream; a
// failing reader ends it early with an end-of-file token and sets Err.
func (p *HTMLTokenizer) Token() Token {
	// some states emit more than 1 token at a time and sometimes no tokens.
	// loop until at least 1 token is emitted and then take them.
	for {
		if token, ok := p.takeLastEmittedToken(); ok {
			return token
		}
		if p.done {
			return p.tokenBuilder.EndOfFileToken()
		}

		r, _, err := p.inputStream.ReadRune()
		eof := err != nil
		if err != nil && err != io.EOF && p.err == nil {
			p.err = errors.Wrap(err, "reading html input")
		}

		p.processRune(p.normalizeNewlines(r), eof)
	}
}

// Err returns the first read error from the underlying reader, if any.
func (p *HTMLTokenizer) Err() error {
	return p.err
}

// Tokens yields every token up to, but not including, end of file.
func (p *HTMLTokenizer) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for p.Next() {
			t := p.Token()
			if t.TokenType == EndOfFileToken {
				return
			}
			if !yield(t) {
				return
			}
		}
	}
}

func (p *HTMLTokenizer) processRune(r rune, eof bool) {
	trace := p.log.IsLevelEnabled(logrus.TraceLevel)
	reconsume := true
	for reconsume {
		reconsume, p.currentState = p.stateToParser(p.currentState)(r, eof)
		if trace {
			p.log.WithFields(logrus.Fields{
				"rune":  string(r),
				"state": p.currentState.String(),
			}).Trace("[TOKEN]")
		}
	}
}
