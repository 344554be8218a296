// Package report turns selector matches into the records shown to users.
package report

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/heathj/pagecheck/config"
	"github.com/heathj/pagecheck/parser"
	"github.com/heathj/pagecheck/parser/dom"
	"github.com/heathj/pagecheck/selector"
)

// MatchRecord describes one matched element.
type MatchRecord struct {
	TagName string `json:"tag"`
	// ID is nil when the element has no id attribute at all.
	ID      *string           `json:"id,omitempty"`
	Classes []string          `json:"classes"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// Result holds the matches of one predicate.
type Result struct {
	Predicate string        `json:"predicate"`
	Kind      selector.Kind `json:"kind"`
	Matches   []MatchRecord `json:"matches"`
	Count     int           `json:"count"`
}

// Report is the outcome of running a predicate set over one document.
type Report struct {
	// Elements is the number of elements in the parsed document.
	Elements int      `json:"elements"`
	Results  []Result `json:"results"`
}

// Get returns the result for a predicate ID.
func (r Report) Get(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.Predicate == id {
			return res, true
		}
	}
	return Result{}, false
}

// Total is the number of matches across all predicates.
func (r Report) Total() int {
	n := 0
	for _, res := range r.Results {
		n += res.Count
	}
	return n
}

// Assemble builds one record per match, in order. Nothing is filtered.
func Assemble(p selector.Predicate, matches []dom.Element) []MatchRecord {
	records := make([]MatchRecord, 0, len(matches))
	for _, e := range matches {
		rec := MatchRecord{
			TagName: e.TagName(),
			Classes: e.ClassList(),
			Extra:   extra(p, e),
		}
		if id, ok := e.ID(); ok {
			rec.ID = &id
		}
		if rec.Classes == nil {
			rec.Classes = []string{}
		}
		records = append(records, rec)
	}
	return records
}

func extra(p selector.Predicate, e dom.Element) map[string]string {
	switch p := p.(type) {
	case selector.PresencePredicate:
		v, _ := e.GetAttribute(p.Attr)
		return map[string]string{p.Attr: v}
	case selector.EmptyAttributePredicate:
		src, _ := e.GetAttribute("src")
		out := map[string]string{"src": src}
		if v, ok := e.GetAttribute(p.Attr); ok {
			out[p.Attr] = v
		}
		return out
	}
	return nil
}

// Run applies each predicate to the document in the given order.
func Run(doc *dom.Document, preds []selector.Predicate) Report {
	root := doc.Root()
	r := Report{
		Elements: doc.ElementCount(),
		Results:  make([]Result, 0, len(preds)),
	}
	for _, p := range preds {
		matches := Assemble(p, selector.Select(root, p))
		r.Results = append(r.Results, Result{
			Predicate: p.ID(),
			Kind:      p.Kind(),
			Matches:   matches,
			Count:     len(matches),
		})
	}
	return r
}

// Analyze runs the configured predicate set over doc.
func Analyze(doc *dom.Document, cfg config.Predicates) Report {
	return Run(doc, cfg.Build())
}

// AnalyzeHTML parses html and analyzes it. It cannot fail: unusable input
// gives a report where every predicate has zero matches.
func AnalyzeHTML(html string, cfg config.Predicates, opts ...parser.Option) Report {
	return Analyze(parser.Parse(html, opts...), cfg)
}

// AnalyzeMany analyzes documents concurrently with at most workers running
// at once. Each document is parsed and queried by a single goroutine and
// reports come back in input order.
func AnalyzeMany(ctx context.Context, docs []string, cfg config.Predicates, workers int, opts ...parser.Option) ([]Report, error) {
	if workers < 1 {
		workers = 1
	}
	preds := cfg.Build()
	reports := make([]Report, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, html := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = Run(parser.Parse(html, opts...), preds)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
