package tables

import (
	"fmt"
	"log"

	"modernc.org/sqlite/vtab"

	"github.com/umputun/sqlpdf/pkg/handle"
	"github.com/umputun/sqlpdf/pkg/render"
)

const pagesSchema = "CREATE TABLE x(width, height, label, full_text, page, pdf HIDDEN)"

// pdf_pages columns
const (
	pageColWidth = iota
	pageColHeight
	pageColLabel
	pageColText
	pageColPage
	pageColPDF
)

// NewPages makes the pdf_pages module: one row per page of the document passed to pdf.
func NewPages(env Env) *Module {
	return &Module{
		name:    "pdf_pages",
		schema:  pagesSchema,
		planner: planner{table: "pdf_pages", parent: pageColPDF},
		cursor:  func() vtab.Cursor { return &pagesCursor{env: env} },
	}
}

// pagesCursor owns the document session of one scan. Page handles it emits stay valid
// until the cursor is filtered again or closed.
type pagesCursor struct {
	env      Env
	lease    *handle.Lease
	doc      render.Document
	count    int
	rowid    int64
	row      *pageRow
	filtered bool
}

// pageRow is the materialized data of the current page
type pageRow struct {
	width, height float64
	label         *string
	text          string
}

func (c *pagesCursor) Filter(idxNum int, _ string, vals []vtab.Value) error {
	if err := c.reset(); err != nil {
		return err
	}
	if err := checkPlan("pdf_pages", idxNum, vals); err != nil {
		return err
	}

	var data []byte
	switch v := vals[0].(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("pdf_pages: document must be a blob, got %T: %w", v, ErrMalformed)
	}

	doc, err := c.env.Engine.Open(data)
	if err != nil {
		return fmt.Errorf("pdf_pages: %w", err)
	}
	count, err := doc.PageCount()
	if err != nil {
		_ = doc.Close()
		return fmt.Errorf("pdf_pages: can't count pages: %w", err)
	}

	c.lease = c.env.Registry.Add(doc)
	c.doc, c.count, c.rowid, c.filtered = doc, count, 0, true
	log.Printf("[DEBUG] pdf_pages: document of %d bytes, %d pages", len(data), count)
	return nil
}

func (c *pagesCursor) Next() error {
	if !c.filtered {
		return ErrNotFiltered
	}
	c.row = nil
	c.rowid++
	return nil
}

func (c *pagesCursor) Eof() bool { return !c.filtered || c.rowid >= int64(c.count) }

func (c *pagesCursor) Column(col int) (vtab.Value, error) {
	if !c.filtered {
		return nil, ErrNotFiltered
	}
	if c.Eof() {
		return nil, ErrNoRow
	}

	switch col {
	case pageColPage:
		return c.env.Registry.Encode(PageTag, c.lease.Ref(int(c.rowid))), nil
	case pageColPDF:
		return nil, nil
	}

	row, err := c.materialize()
	if err != nil {
		return nil, err
	}
	switch col {
	case pageColWidth:
		return row.width, nil
	case pageColHeight:
		return row.height, nil
	case pageColLabel:
		if row.label == nil {
			return nil, nil
		}
		return *row.label, nil
	case pageColText:
		return row.text, nil
	default:
		return nil, fmt.Errorf("pdf_pages: unknown column %d", col)
	}
}

// materialize loads the current page once and reads all its data columns, text included
func (c *pagesCursor) materialize() (*pageRow, error) {
	if c.row != nil {
		return c.row, nil
	}
	idx := int(c.rowid)
	page, err := c.doc.Page(idx)
	if err != nil {
		return nil, fmt.Errorf("pdf_pages: can't load page %d: %w", idx, err)
	}
	defer page.Close()

	row := &pageRow{}
	if row.width, row.height, err = page.Size(); err != nil {
		return nil, fmt.Errorf("pdf_pages: can't get page %d size: %w", idx, err)
	}
	label, ok, err := page.Label()
	if err != nil {
		return nil, fmt.Errorf("pdf_pages: can't get page %d label: %w", idx, err)
	}
	if ok {
		row.label = &label
	}
	if row.text, err = page.Text(); err != nil {
		return nil, fmt.Errorf("pdf_pages: can't get page %d text: %w", idx, err)
	}
	c.row = row
	return row, nil
}

func (c *pagesCursor) Rowid() (int64, error) {
	if !c.filtered {
		return 0, ErrNotFiltered
	}
	return c.rowid, nil
}

func (c *pagesCursor) Close() error { return c.reset() }

// reset retires the session, child cursors still holding it keep it open until they are done
func (c *pagesCursor) reset() error {
	lease := c.lease
	c.lease, c.doc, c.row, c.count, c.rowid, c.filtered = nil, nil, nil, 0, 0, false
	if lease == nil {
		return nil
	}
	if err := lease.Release(); err != nil {
		return fmt.Errorf("pdf_pages: %w", err)
	}
	return nil
}
