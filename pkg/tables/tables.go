// Package tables implements the pdf_pages, pdf_images and pdf_annotations virtual tables
// and the pdf_page_thumbnail function on top of the modernc sqlite vtab protocol.
//
// pdf_pages takes document bytes through its hidden pdf column and emits a page handle
// cell per row. pdf_images and pdf_annotations take that cell through their hidden page
// column and enumerate the objects of the page it names.
package tables

import (
	"errors"
	"fmt"
	"log"

	"modernc.org/sqlite/vtab"

	"github.com/umputun/sqlpdf/pkg/handle"
	"github.com/umputun/sqlpdf/pkg/render"
)

// PageTag marks page handle cells produced by pdf_pages.
const PageTag = "pdf_page"

// error classes, check with errors.Is
var (
	ErrPlan        = errors.New("table requires an equality constraint on its hidden parent column")
	ErrMalformed   = render.ErrMalformed
	ErrNotFiltered = errors.New("cursor used before filter")
	ErrRender      = errors.New("can't materialize image")
	ErrNoRow       = errors.New("cursor has no current row")
)

// Env is what every table and the thumbnail function share: the rendering engine and
// the registry of open documents. Both are safe for concurrent use.
type Env struct {
	Engine   render.Engine
	Registry *handle.Registry
}

// Module is a virtual table module ready to be registered with the driver.
type Module struct {
	name    string
	schema  string
	planner planner
	cursor  func() vtab.Cursor
}

// Name is the module name used in CREATE VIRTUAL TABLE ... USING <name>.
func (m *Module) Name() string { return m.name }

// Create declares the schema, module has no backing storage so it is the same as Connect.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Connect(ctx, args)
}

// Connect declares the schema and makes the table.
func (m *Module) Connect(ctx vtab.Context, _ []string) (vtab.Table, error) {
	if err := ctx.Declare(m.schema); err != nil {
		return nil, fmt.Errorf("can't declare %s schema: %w", m.name, err)
	}
	log.Printf("[DEBUG] %s table connected", m.name)
	return &table{Module: m}, nil
}

// Modules returns all three table modules bound to env.
func Modules(env Env) []*Module {
	return []*Module{NewPages(env), NewImages(env), NewAnnotations(env)}
}

type table struct {
	*Module
}

func (t *table) BestIndex(info *vtab.IndexInfo) error { return t.planner.bestIndex(info) }
func (t *table) Open() (vtab.Cursor, error)          { return t.cursor(), nil }
func (t *table) Disconnect() error                   { return nil }
func (t *table) Destroy() error                      { return nil }
