package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/heathj/pagecheck/config"
	"github.com/heathj/pagecheck/fetch"
	"github.com/heathj/pagecheck/parser"
	"github.com/heathj/pagecheck/parser/dom"
	"github.com/heathj/pagecheck/report"
	"github.com/heathj/pagecheck/selector"
	"github.com/heathj/pagecheck/server"
)

const usage = `usage: pagecheck [flags] <file|url|->...
       pagecheck [flags] -serve

Each input is parsed and checked independently and one JSON report is
written per input, in argument order. "-" reads standard input.

flags:
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// output is what gets printed for one input.
type output struct {
	Source  string `json:"source"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*report.Report
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "pagecheck:", err)
		return 2
	}

	fs := flag.NewFlagSet("pagecheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	predicatesFile := fs.String("config", cfg.PredicatesFile, "YAML file with the predicate set")
	workers := fs.Int("workers", cfg.Workers, "documents analyzed at once")
	pretty := fs.Bool("pretty", false, "indent JSON output")
	serve := fs.Bool("serve", false, "serve the HTTP API instead of analyzing arguments")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log, err := cfg.Log.Logger()
	if err != nil {
		fmt.Fprintln(stderr, "pagecheck:", err)
		return 2
	}
	log.SetOutput(stderr)

	if *predicatesFile != "" && *predicatesFile != cfg.PredicatesFile {
		p, err := config.LoadPredicatesFile(*predicatesFile)
		if err != nil {
			log.WithError(err).Error("loading predicates")
			return 2
		}
		cfg.Predicates = *p
	}

	fetcher := fetch.New(cfg.Fetch, log)

	if *serve {
		if err := server.New(cfg.Server, cfg.Predicates, fetcher, log).ListenAndServe(ctx); err != nil {
			log.WithError(err).Error("server stopped")
			return 1
		}
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	stdinArgs := 0
	for _, src := range fs.Args() {
		if src == "-" {
			stdinArgs++
		}
	}
	if stdinArgs > 1 {
		fmt.Fprintln(stderr, "pagecheck: standard input (-) can only be read once")
		return 2
	}

	a := &analyzer{
		preds:   cfg.Predicates.Build(),
		fetcher: fetcher,
		stdin:   stdin,
		log:     log,
	}
	outputs := a.analyzeAll(ctx, fs.Args(), *workers)

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	status := 0
	for _, out := range outputs {
		if !out.Success {
			status = 1
		}
		if err := enc.Encode(out); err != nil {
			log.WithError(err).Error("writing report")
			return 1
		}
	}
	return status
}

type analyzer struct {
	preds   []selector.Predicate
	fetcher *fetch.Fetcher
	stdin   io.Reader
	log     *logrus.Logger
}

// analyzeAll runs one pipeline per source with at most workers at once.
// A failing source is reported in its output and does not stop the others.
func (a *analyzer) analyzeAll(ctx context.Context, sources []string, workers int) []output {
	if workers < 1 {
		workers = 1
	}
	outputs := make([]output, len(sources))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			outputs[i] = a.analyze(ctx, src)
			return nil
		})
	}
	g.Wait()
	return outputs
}

func (a *analyzer) analyze(ctx context.Context, src string) output {
	out := output{Source: src}
	doc, err := a.load(ctx, src)
	if err != nil {
		a.log.WithError(err).WithField("source", src).Warn("skipping input")
		out.Error = err.Error()
		return out
	}

	rep := report.Run(doc, a.preds)
	a.log.WithFields(logrus.Fields{
		"source":   src,
		"elements": rep.Elements,
		"matches":  rep.Total(),
	}).Info("analyzed document")

	out.Success = true
	out.Report = &rep
	return out
}

func (a *analyzer) load(ctx context.Context, src string) (*dom.Document, error) {
	switch {
	case src == "-":
		return parser.ParseReader(a.stdin, parser.WithLogger(a.log))
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		html, err := a.fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		return parser.Parse(html, parser.WithLogger(a.log)), nil
	default:
		f, err := os.Open(src)
		if err != nil {
			return nil, errors.Wrap(err, "opening input")
		}
		defer f.Close()
		return parser.ParseReader(f, parser.WithLogger(a.log))
	}
}
