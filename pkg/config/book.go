// Package config loads the query book, a set of named sql queries run against every document.
package config

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Book defines the top-level config object
type Book struct {
	Engine  string  `yaml:"engine" toml:"engine"`   // rendering engine, pdfium or memory
	PDFium  PDFium  `yaml:"pdfium" toml:"pdfium"`   // pdfium pool settings
	Export  string  `yaml:"export" toml:"export"`   // directory to write blob cells to, optional
	Queries []Query `yaml:"queries" toml:"queries"` // list of queries

	timeout time.Duration
}

// PDFium defines the webassembly instance pool
type PDFium struct {
	Instances int    `yaml:"instances" toml:"instances"` // number of instances shared by open documents
	Timeout   string `yaml:"timeout" toml:"timeout"`     // wait for each instance on start, like "30s"
}

// Query defines a named sql statement. Every "?" parameter is bound to the document bytes.
type Query struct {
	Name string `yaml:"name" toml:"name"`
	SQL  string `yaml:"sql" toml:"sql"`
}

const (
	defaultEngine    = "pdfium"
	defaultInstances = 1
	defaultTimeout   = 30 * time.Second
)

var engines = []string{"pdfium", "memory"}

// DefaultQueries used when no book is given or the book has no queries
var DefaultQueries = []Query{
	{Name: "pages", SQL: "SELECT rowid AS page, width, height, label, full_text FROM pdf_pages(?)"},
	{Name: "images", SQL: "SELECT p.rowid AS page, i.rowid AS image, i.x, i.y, i.width, i.height, i.image " +
		"FROM pdf_pages(?) p JOIN pdf_images(p.page) i"},
	{Name: "annotations", SQL: "SELECT p.rowid AS page, a.type, a.x, a.y, a.width, a.height, a.name, a.contents, " +
		"a.creator, a.created_at, a.modified_at FROM pdf_pages(?) p JOIN pdf_annotations(p.page) a"},
	{Name: "thumbnails", SQL: "SELECT rowid AS page, pdf_page_thumbnail(page) AS thumbnail FROM pdf_pages(?)"},
}

// Default makes a book with default engine settings and default queries
func Default() *Book {
	res := &Book{}
	res.applyDefaults()
	return res
}

// New loads the book from fname. Empty fname gives the default book.
// The format is picked by the file suffix, yml/yaml (or no suffix) and toml are supported.
func New(fname string) (*Book, error) {
	if fname == "" {
		log.Printf("[DEBUG] no query book, using defaults")
		return Default(), nil
	}
	log.Printf("[DEBUG] request to load query book %q", fname)

	data, err := os.ReadFile(fname) // nolint
	if err != nil {
		return nil, fmt.Errorf("can't read query book: %w", err)
	}

	res := &Book{}
	if err = unmarshalBookFile(fname, data, res); err != nil {
		return nil, fmt.Errorf("can't unmarshal config: %w", err)
	}
	res.applyDefaults()
	if err = res.checkConfig(); err != nil {
		return nil, fmt.Errorf("config %s is invalid: %w", fname, err)
	}

	log.Printf("[INFO] query book loaded with %d queries, engine %s", len(res.Queries), res.Engine)
	return res, nil
}

func unmarshalBookFile(fname string, data []byte, res *Book) error {
	switch {
	case strings.HasSuffix(fname, ".yml") || strings.HasSuffix(fname, ".yaml") || !strings.Contains(fname, "."):
		yamlDecoder := yaml.NewDecoder(bytes.NewReader(data))
		yamlDecoder.KnownFields(true) // strict mode, fail on unknown fields
		if err := yamlDecoder.Decode(res); err != nil {
			return fmt.Errorf("can't unmarshal yaml query book %s: %w", fname, err)
		}
	case strings.HasSuffix(fname, ".toml"):
		if err := toml.Unmarshal(data, res); err != nil {
			return fmt.Errorf("can't unmarshal toml query book %s: %w", fname, err)
		}
	default:
		return fmt.Errorf("unknown config format %s", fname)
	}
	return nil
}

func (b *Book) applyDefaults() {
	if b.Engine == "" {
		b.Engine = defaultEngine
	}
	if b.PDFium.Instances == 0 {
		b.PDFium.Instances = defaultInstances
	}
	if len(b.Queries) == 0 {
		b.Queries = append([]Query{}, DefaultQueries...)
	}
	if b.timeout == 0 {
		b.timeout = defaultTimeout
	}
}

// checkConfig reports all problems of the book at once
func (b *Book) checkConfig() error {
	errs := new(multierror.Error)

	known := false
	for _, e := range engines {
		if b.Engine == e {
			known = true
		}
	}
	if !known {
		errs = multierror.Append(errs, fmt.Errorf("unknown engine %q, expected one of %v", b.Engine, engines))
	}

	if b.PDFium.Instances < 0 {
		errs = multierror.Append(errs, fmt.Errorf("pdfium instances can't be negative, got %d", b.PDFium.Instances))
	}
	if b.PDFium.Timeout != "" {
		d, err := time.ParseDuration(b.PDFium.Timeout)
		switch {
		case err != nil:
			errs = multierror.Append(errs, fmt.Errorf("invalid pdfium timeout: %w", err))
		case d <= 0:
			errs = multierror.Append(errs, fmt.Errorf("pdfium timeout must be positive, got %s", d))
		default:
			b.timeout = d
		}
	}

	names := make(map[string]bool)
	for i, q := range b.Queries {
		if q.Name == "" { // query name is required
			errs = multierror.Append(errs, fmt.Errorf("query #%d has no name", i))
			continue
		}
		key := strings.ToLower(q.Name)
		if names[key] { // query name must be unique
			errs = multierror.Append(errs, fmt.Errorf("duplicate query name %q", q.Name))
		}
		names[key] = true
		if strings.TrimSpace(q.SQL) == "" {
			errs = multierror.Append(errs, fmt.Errorf("query %q has no sql", q.Name))
		}
	}

	return errs.ErrorOrNil()
}

// Timeout returns the wait for a pdfium instance on engine start
func (b *Book) Timeout() time.Duration {
	return b.timeout
}

// Select returns queries with the given names, in the order of names.
// Names are case-insensitive, no names selects all queries of the book.
func (b *Book) Select(names ...string) ([]Query, error) {
	if len(names) == 0 {
		return append([]Query{}, b.Queries...), nil
	}
	res := make([]Query, 0, len(names))
	for _, name := range names {
		q, err := b.Query(name)
		if err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, nil
}

// Query returns the query with the given name
func (b *Book) Query(name string) (Query, error) {
	for _, q := range b.Queries {
		if strings.EqualFold(q.Name, name) {
			return q, nil
		}
	}
	return Query{}, fmt.Errorf("query %q not found", name)
}
