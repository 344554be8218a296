// Package selector matches elements of a parsed document against a small,
// fixed set of predicates.
package selector

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/heathj/pagecheck/parser/dom"
)

type Kind uint

const (
	ClassKind Kind = iota
	PresenceKind
	EmptyAttributeKind
)

var kindNames = [...]string{"class", "presence", "empty-attribute"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint(k))
}

// MarshalText lets a Kind appear as its name in JSON reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return errors.Errorf("unknown predicate kind %q", text)
}

// Predicate is a boolean test over a single element.
type Predicate interface {
	Match(dom.Element) bool
	// ID is stable and unique within a predicate set.
	ID() string
	Kind() Kind
}

// ClassPredicate matches elements carrying Name as one of their class
// tokens. Class names are case-sensitive.
type ClassPredicate struct {
	Name string
}

func Class(name string) ClassPredicate {
	return ClassPredicate{Name: name}
}

func (p ClassPredicate) Match(e dom.Element) bool { return e.HasClass(p.Name) }
func (p ClassPredicate) ID() string               { return "class:" + p.Name }
func (p ClassPredicate) Kind() Kind               { return ClassKind }

// PresencePredicate matches elements that have the attribute, whatever its
// value.
type PresencePredicate struct {
	Attr string
}

func AttributePresence(name string) PresencePredicate {
	return PresencePredicate{Attr: strings.ToLower(name)}
}

func (p PresencePredicate) Match(e dom.Element) bool { return e.HasAttribute(p.Attr) }
func (p PresencePredicate) ID() string               { return "attr:" + p.Attr }
func (p PresencePredicate) Kind() Kind               { return PresenceKind }

// EmptyAttributePredicate matches Tag elements whose Attr is missing or
// blank. Both count the same.
type EmptyAttributePredicate struct {
	Tag  string
	Attr string
}

func TagWithEmptyAttribute(tag, attr string) EmptyAttributePredicate {
	return EmptyAttributePredicate{
		Tag:  strings.ToLower(tag),
		Attr: strings.ToLower(attr),
	}
}

func (p EmptyAttributePredicate) Match(e dom.Element) bool {
	if e.IsRoot() || e.TagName() != p.Tag {
		return false
	}
	v, ok := e.GetAttribute(p.Attr)
	return !ok || strings.TrimSpace(v) == ""
}

func (p EmptyAttributePredicate) ID() string { return "empty:" + p.Tag + "[" + p.Attr + "]" }
func (p EmptyAttributePredicate) Kind() Kind { return EmptyAttributeKind }

// Select returns every element below root that p matches, in document
// order. Root itself is never a candidate.
func Select(root dom.Element, p Predicate) []dom.Element {
	var matches []dom.Element
	for e := range root.Descendants(false) {
		if p.Match(e) {
			matches = append(matches, e)
		}
	}
	return matches
}

func ByClass(root dom.Element, name string) []dom.Element {
	return Select(root, Class(name))
}

func ByAttributePresence(root dom.Element, name string) []dom.Element {
	return Select(root, AttributePresence(name))
}

func ByTagWithEmptyAttribute(root dom.Element, tag, attr string) []dom.Element {
	return Select(root, TagWithEmptyAttribute(tag, attr))
}
