// Package config loads pagecheck settings from the environment and, for
// predicate sets, from YAML files.
package config

import (
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/heathj/pagecheck/selector"
)

// Prefix is prepended to every environment variable, e.g. PAGECHECK_LOG_LEVEL.
const Prefix = "PAGECHECK"

// ErrInvalidRule is returned for a predicate configuration that names a
// blank or repeated class, attribute or tag.
var ErrInvalidRule = errors.New("invalid predicate rule")

// Config holds all application configuration.
type Config struct {
	Log        LogConfig    `envconfig:"LOG"`
	Server     ServerConfig `envconfig:"SERVER"`
	Fetch      FetchConfig  `envconfig:"FETCH"`
	Predicates Predicates   `envconfig:"PREDICATES"`
	// PredicatesFile replaces Predicates with the contents of a YAML file.
	PredicatesFile string `envconfig:"PREDICATES_FILE"`
	Workers        int    `envconfig:"WORKERS" default:"4"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `envconfig:"LEVEL" default:"info"`
	JSON  bool   `envconfig:"JSON" default:"false"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	MaxBodyBytes int64         `envconfig:"MAX_BODY_BYTES" default:"10485760"`
}

// FetchConfig holds page download configuration.
type FetchConfig struct {
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"30s"`
	RetryMax     int           `envconfig:"RETRY_MAX" default:"3"`
	RetryWaitMin time.Duration `envconfig:"RETRY_WAIT_MIN" default:"1s"`
	RetryWaitMax time.Duration `envconfig:"RETRY_WAIT_MAX" default:"10s"`
	MaxBodyBytes int64         `envconfig:"MAX_BODY_BYTES" default:"10485760"`
	UserAgent    string        `envconfig:"USER_AGENT" default:"pagecheck/1.0"`
}

// Predicates enumerates which checks run against each document.
type Predicates struct {
	ClassNames          []string          `envconfig:"CLASSES" default:"cp,cdp_grid,brandpage"`
	PresenceAttributes  []string          `envconfig:"ATTRIBUTES" default:"data-scroll"`
	EmptyAttributeByTag map[string]string `envconfig:"EMPTY" default:"img:alt"`
}

// predicatesFile is the YAML shape of Predicates. Pointers tell a missing
// key apart from an empty one.
type predicatesFile struct {
	ClassNames          *[]string          `yaml:"classes"`
	PresenceAttributes  *[]string          `yaml:"attributes"`
	EmptyAttributeByTag *map[string]string `yaml:"empty_attributes"`
}

// DefaultPredicates is the fixed check set: three marketing classes, the
// data-scroll marker and images without alt text.
func DefaultPredicates() Predicates {
	return Predicates{
		ClassNames:          []string{"cp", "cdp_grid", "brandpage"},
		PresenceAttributes:  []string{"data-scroll"},
		EmptyAttributeByTag: map[string]string{"img": "alt"},
	}
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if cfg.PredicatesFile != "" {
		p, err := LoadPredicatesFile(cfg.PredicatesFile)
		if err != nil {
			return nil, err
		}
		cfg.Predicates = *p
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 10 << 20,
		},
		Fetch: FetchConfig{
			Timeout:      30 * time.Second,
			RetryMax:     3,
			RetryWaitMin: time.Second,
			RetryWaitMax: 10 * time.Second,
			MaxBodyBytes: 10 << 20,
			UserAgent:    "pagecheck/1.0",
		},
		Predicates: DefaultPredicates(),
		Workers:    4,
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log level")
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return c.Predicates.Validate()
}

// Logger builds the process logger described by c.
func (c LogConfig) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	log := logrus.New()
	log.SetLevel(level)
	if c.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log, nil
}

// LoadPredicatesFile reads a YAML predicate set. Keys left out of the file
// keep their default value; an explicitly empty list disables that check.
func LoadPredicatesFile(path string) (*Predicates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading predicates file %s", path)
	}
	defer f.Close()

	var raw predicatesFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "parsing predicates file %s", path)
	}

	p := DefaultPredicates()
	if raw.ClassNames != nil {
		p.ClassNames = *raw.ClassNames
	}
	if raw.PresenceAttributes != nil {
		p.PresenceAttributes = *raw.PresenceAttributes
	}
	if raw.EmptyAttributeByTag != nil {
		p.EmptyAttributeByTag = *raw.EmptyAttributeByTag
	}
	if err := p.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "predicates file %s", path)
	}
	return &p, nil
}

// Validate rejects blank or repeated names. An empty set is valid and
// simply produces an empty report.
func (p Predicates) Validate() error {
	if err := distinct("class name", p.ClassNames, false); err != nil {
		return err
	}
	if err := distinct("attribute", p.PresenceAttributes, true); err != nil {
		return err
	}
	tags := make([]string, 0, len(p.EmptyAttributeByTag))
	for tag, attr := range p.EmptyAttributeByTag {
		if strings.TrimSpace(attr) == "" {
			return errors.Wrapf(ErrInvalidRule, "blank attribute for tag %q", tag)
		}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return distinct("tag", tags, true)
}

func distinct(what string, names []string, foldCase bool) error {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return errors.Wrapf(ErrInvalidRule, "blank %s", what)
		}
		key := n
		if foldCase {
			key = strings.ToLower(n)
		}
		if _, dup := seen[key]; dup {
			return errors.Wrapf(ErrInvalidRule, "repeated %s %q", what, n)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Build turns the configuration into predicates in report order: classes,
// then presence attributes, then empty-attribute rules sorted by tag.
func (p Predicates) Build() []selector.Predicate {
	out := make([]selector.Predicate, 0, len(p.ClassNames)+len(p.PresenceAttributes)+len(p.EmptyAttributeByTag))
	seen := make(map[string]struct{})
	add := func(pred selector.Predicate) {
		if _, dup := seen[pred.ID()]; dup {
			return
		}
		seen[pred.ID()] = struct{}{}
		out = append(out, pred)
	}

	for _, name := range p.ClassNames {
		add(selector.Class(name))
	}
	for _, name := range p.PresenceAttributes {
		add(selector.AttributePresence(name))
	}
	tags := make([]string, 0, len(p.EmptyAttributeByTag))
	for tag := range p.EmptyAttributeByTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		add(selector.TagWithEmptyAttribute(tag, p.EmptyAttributeByTag[tag]))
	}
	return out
}
