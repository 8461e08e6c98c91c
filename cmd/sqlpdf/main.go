package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/fileutils"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/stringutils"
	"github.com/go-pkgz/syncs"
	"github.com/hashicorp/go-multierror"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/sqlpdf/pkg/config"
	"github.com/umputun/sqlpdf/pkg/extension"
	"github.com/umputun/sqlpdf/pkg/handle"
	"github.com/umputun/sqlpdf/pkg/render"
	"github.com/umputun/sqlpdf/pkg/render/memory"
	"github.com/umputun/sqlpdf/pkg/render/pdfium"
	"github.com/umputun/sqlpdf/pkg/tables"
)

type options struct {
	PositionalArgs struct {
		Files []string `positional-arg-name:"file" description:"documents to query" required:"1"`
	} `positional-args:"yes" positional-optional:"no"`

	Query      string   `short:"q" long:"query" description:"ad-hoc sql, every ? is bound to the document"`
	Config     string   `short:"c" long:"config" env:"SQLPDF_CONFIG" description:"query book file"`
	Names      []string `short:"n" long:"name" description:"run only named queries from the book"`
	Engine     string   `long:"engine" env:"SQLPDF_ENGINE" choice:"pdfium" choice:"memory" description:"rendering engine, overrides the book"`
	Export     string   `long:"export" description:"directory to write blob cells to, overrides the book"`
	Concurrent int      `short:"j" long:"concurrent" description:"documents read concurrently, queries run one at a time on the shared database" default:"1"`
	MaxText    int      `long:"max-text" description:"truncate text cells to this length, 0 to keep as is" default:"80"`

	Version bool `long:"version" description:"show version"`
	Dbg     bool `long:"dbg" description:"debug mode"`
}

var revision = "latest"

func main() {
	fmt.Printf("sqlpdf %s\n", revision)

	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		os.Exit(1)
	}
	if opts.Version {
		os.Exit(0) // already printed
	}
	setupLog(opts.Dbg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		if opts.Dbg {
			log.Panicf("[ERROR] %v", err)
		}
		fmt.Printf("failed, %v\n", formatErrorString(err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	st := time.Now()
	book, queries, err := loadBook(opts)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, book)
	if err != nil {
		return fmt.Errorf("can't start: %w", err)
	}
	defer a.close()

	a.out, a.export, a.maxText = out, book.Export, opts.MaxText
	if err := a.processAll(ctx, opts.PositionalArgs.Files, queries, opts.Concurrent); err != nil {
		return err
	}
	log.Printf("[INFO] completed %d documents in %v", len(opts.PositionalArgs.Files), time.Since(st).Truncate(100*time.Millisecond))
	return nil
}

// loadBook loads the query book and applies cli overrides to it
func loadBook(opts options) (*config.Book, []config.Query, error) {
	book, err := config.New(opts.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("can't load query book %q: %w", opts.Config, err)
	}
	if opts.Engine != "" {
		book.Engine = opts.Engine
	}
	if opts.Export != "" {
		book.Export = opts.Export
	}
	if book.Export != "" && fileutils.IsFile(book.Export) {
		return nil, nil, fmt.Errorf("export location %s is a file", book.Export)
	}

	if opts.Query != "" {
		return book, []config.Query{{Name: "ad-hoc", SQL: opts.Query}}, nil
	}
	queries, err := book.Select(opts.Names...)
	if err != nil {
		return nil, nil, fmt.Errorf("can't select queries: %w", err)
	}
	return book, queries, nil
}

// app runs queries against documents on a single database.
// The driver installs pdf tables on the first connection of the process only, so there is one app per process.
type app struct {
	engine render.Engine
	db     *sql.DB

	out     io.Writer
	export  string
	maxText int
	outLock sync.Mutex
}

func newApp(ctx context.Context, book *config.Book) (*app, error) {
	engine, err := makeEngine(book)
	if err != nil {
		return nil, fmt.Errorf("can't make %s engine: %w", book.Engine, err)
	}
	if err = extension.Register(tables.Env{Engine: engine, Registry: handle.NewRegistry()}); err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("can't register extension: %w", err)
	}
	db, err := extension.Open(ctx, ":memory:")
	if err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("can't open database: %w", err)
	}
	return &app{engine: engine, db: db, out: io.Discard}, nil
}

func makeEngine(book *config.Book) (render.Engine, error) {
	switch book.Engine {
	case "memory":
		return memory.NewEngine(), nil
	case "pdfium":
		return pdfium.New(pdfium.Config{Instances: book.PDFium.Instances, Timeout: book.Timeout()})
	}
	return nil, fmt.Errorf("unknown engine %q", book.Engine)
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		log.Printf("[WARN] can't close database: %v", err)
	}
	if err := a.engine.Close(); err != nil {
		log.Printf("[WARN] can't close engine: %v", err)
	}
}

// processAll runs queries for all files. Up to concurrent files are read at once, the database
// is pinned to one connection, so their queries are serialised. Failed files don't stop others.
func (a *app) processAll(ctx context.Context, files []string, queries []config.Query, concurrent int) error {
	if concurrent < 1 {
		concurrent = 1
	}
	errs := new(multierror.Error)
	var errsLock sync.Mutex

	wg := syncs.NewErrSizedGroup(concurrent, syncs.Context(ctx), syncs.Preemptive)
	for _, fname := range files {
		fname := fname
		wg.Go(func() error {
			var buf bytes.Buffer
			err := a.processFile(ctx, fname, queries, &buf)

			a.outLock.Lock() // keep output of a file together
			_, _ = a.out.Write(buf.Bytes())
			a.outLock.Unlock()

			if err != nil {
				errsLock.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", fname, err))
				errsLock.Unlock()
			}
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

func (a *app) processFile(ctx context.Context, fname string, queries []config.Query, out io.Writer) error {
	if !fileutils.IsFile(fname) {
		return errors.New("not a file")
	}
	data, err := os.ReadFile(fname) // nolint
	if err != nil {
		return fmt.Errorf("can't read: %w", err)
	}
	log.Printf("[DEBUG] loaded %s, %d bytes", fname, len(data))

	for _, q := range queries {
		if err := a.query(ctx, fname, data, q, out); err != nil {
			return fmt.Errorf("query %q failed: %w", q.Name, err)
		}
	}
	return nil
}

// query runs q with the document bound to every parameter and writes rows tab separated
func (a *app) query(ctx context.Context, fname string, data []byte, q config.Query, out io.Writer) error {
	args := make([]any, strings.Count(q.SQL, "?"))
	for i := range args {
		args[i] = data
	}

	rows, err := a.db.QueryContext(ctx, q.SQL, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("can't get columns: %w", err)
	}
	fmt.Fprintf(out, "# %s, %s\n", fname, q.Name)
	_, _ = color.New(color.FgHiGreen, color.Bold).Fprintln(out, strings.Join(cols, "\t"))

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	count := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("can't scan row %d: %w", count, err)
		}
		cells := make([]string, len(cols))
		for i, v := range vals {
			cell, err := a.formatCell(v, blobName(fname, q.Name, count, cols[i]))
			if err != nil {
				return err
			}
			cells[i] = cell
		}
		fmt.Fprintln(out, strings.Join(cells, "\t"))
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	log.Printf("[DEBUG] query %q on %s returned %d rows", q.Name, fname, count)
	return nil
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// formatCell makes a printable cell. Blobs are summarized or written to the export directory.
func (a *app) formatCell(v any, name string) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case []byte:
		kind := "blob"
		if bytes.HasPrefix(val, pngSignature) {
			kind = "png"
		}
		if a.export == "" || kind != "png" {
			return fmt.Sprintf("<%s %d bytes>", kind, len(val)), nil
		}
		if err := os.MkdirAll(a.export, 0o750); err != nil {
			return "", fmt.Errorf("can't make export directory: %w", err)
		}
		dst := filepath.Join(a.export, name+".png")
		if err := os.WriteFile(dst, val, 0o600); err != nil {
			return "", fmt.Errorf("can't export %s: %w", dst, err)
		}
		return dst, nil
	case string:
		s := stringutils.NormalizeWhitespace(val)
		if a.maxText > 0 {
			s = stringutils.Truncate(s, a.maxText)
		}
		return s, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	}
	return fmt.Sprint(v), nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// blobName makes export file name like report-images-2-image
func blobName(fname, query string, row int, col string) string {
	base := strings.TrimSuffix(filepath.Base(fname), filepath.Ext(fname))
	name := fmt.Sprintf("%s-%s-%d-%s", base, query, row, col)
	return unsafeName.ReplaceAllString(name, "_")
}

func formatErrorString(input string) string {
	headerRe := regexp.MustCompile(`(\d+ errors? occurred:)`)
	headerMatch := headerRe.FindStringSubmatch(input)

	if len(headerMatch) == 0 {
		return input
	}

	errorsRe := regexp.MustCompile(`(?m)^\s*\* (.+)$`)
	errorsMatches := errorsRe.FindAllStringSubmatch(input, -1)

	formattedString := fmt.Sprintf("%s\n", strings.TrimSpace(headerMatch[1]))
	for i, match := range errorsMatches {
		formattedString += fmt.Sprintf("   [%d] %s\n", i, strings.TrimSpace(match[1]))
	}

	return formattedString
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(io.Discard)} // default to discard
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
