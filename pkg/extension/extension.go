// Package extension registers the pdf tables and functions with the modernc sqlite driver
// and opens databases where they are ready to query.
package extension

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"

	"modernc.org/sqlite"
	"modernc.org/sqlite/vtab"

	"github.com/umputun/sqlpdf/pkg/tables"
)

// ErrNotRegistered returned by Open called before Register.
var ErrNotRegistered = errors.New("extension is not registered")

var reg struct {
	sync.Mutex
	done    bool
	modules []string
}

// Register installs pdf_pages, pdf_images, pdf_annotations and pdf_page_thumbnail into the
// driver. Driver registrations are process wide and apply to connections opened later,
// so this is done once per process, next calls fail.
func Register(env tables.Env) error {
	reg.Lock()
	defer reg.Unlock()
	if reg.done {
		return errors.New("extension already registered")
	}
	if env.Engine == nil || env.Registry == nil {
		return errors.New("engine and registry are required")
	}

	var names []string
	for _, m := range tables.Modules(env) {
		if err := vtab.RegisterModule(nil, m.Name(), m); err != nil {
			return fmt.Errorf("can't register module %s: %w", m.Name(), err)
		}
		names = append(names, m.Name())
	}
	if err := sqlite.RegisterDeterministicScalarFunction(tables.ThumbnailFunc, 1, tables.Thumbnail(env)); err != nil {
		return fmt.Errorf("can't register %s: %w", tables.ThumbnailFunc, err)
	}
	reg.done, reg.modules = true, names
	log.Printf("[DEBUG] registered modules %v and %s", names, tables.ThumbnailFunc)
	return nil
}

// Open opens dsn and creates the pdf tables in its temp schema, so they are usable as
// table-valued functions, like "SELECT * FROM pdf_pages(?)".
// Temp tables belong to a connection, the returned db is pinned to a single one.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	reg.Lock()
	modules, done := reg.modules, reg.done
	reg.Unlock()
	if !done {
		return nil, ErrNotRegistered
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	for _, name := range modules {
		q := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS temp.%s USING %s", name, name)
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("can't create table %s: %w", name, err)
		}
	}
	log.Printf("[INFO] database %s opened with tables %v", dsn, modules)
	return db, nil
}
