package tables

import (
	"fmt"

	"modernc.org/sqlite/vtab"

	"github.com/umputun/sqlpdf/pkg/render"
)

const imagesSchema = "CREATE TABLE x(x, y, width, height, image, page HIDDEN)"

// pdf_images columns
const (
	imageColX = iota
	imageColY
	imageColWidth
	imageColHeight
	imageColImage
	imageColPage
)

// NewImages makes the pdf_images module: raster images of the page passed to page.
func NewImages(env Env) *Module {
	return &Module{
		name:    "pdf_images",
		schema:  imagesSchema,
		planner: planner{table: "pdf_images", parent: imageColPage},
		cursor:  func() vtab.Cursor { return &imagesCursor{env: env} },
	}
}

type imagesCursor struct {
	env      Env
	bound    *pageBinding
	it       render.Iterator[render.Object]
	cur      render.ImageObject
	rowid    int64
	filtered bool
}

func (c *imagesCursor) Filter(idxNum int, _ string, vals []vtab.Value) error {
	if err := c.reset(); err != nil {
		return err
	}
	if err := checkPlan("pdf_images", idxNum, vals); err != nil {
		return err
	}
	bound, err := bindPage(c.env, vals[0])
	if err != nil {
		return fmt.Errorf("pdf_images: %w", err)
	}
	objs, err := bound.page.Objects()
	if err != nil {
		_ = bound.release()
		return fmt.Errorf("pdf_images: can't list page objects: %w", err)
	}
	c.bound, c.it, c.rowid, c.filtered = bound, render.Images(objs), 0, true
	return c.advance()
}

// advance moves to the next image object, skipping everything else on the page
func (c *imagesCursor) advance() error {
	if c.it.Next() {
		c.cur = c.it.Value().(render.ImageObject)
		return nil
	}
	// exhausted, the page is not needed until the next filter
	iterErr := c.it.Err()
	if err := c.drop(); err != nil && iterErr == nil {
		return err
	}
	if iterErr != nil {
		return fmt.Errorf("pdf_images: can't read page objects: %w", iterErr)
	}
	return nil
}

func (c *imagesCursor) Next() error {
	if !c.filtered {
		return ErrNotFiltered
	}
	if c.cur == nil {
		return nil
	}
	c.rowid++
	return c.advance()
}

func (c *imagesCursor) Eof() bool { return c.cur == nil }

func (c *imagesCursor) Column(col int) (vtab.Value, error) {
	if !c.filtered {
		return nil, ErrNotFiltered
	}
	if c.cur == nil {
		return nil, ErrNoRow
	}

	switch col {
	case imageColPage:
		return nil, nil
	case imageColImage:
		// rendered and encoded on every read
		img, err := c.cur.Image()
		if err != nil {
			return nil, fmt.Errorf("pdf_images: row %d: %v: %w", c.rowid, err, ErrRender)
		}
		data, err := render.EncodePNG(img)
		if err != nil {
			return nil, fmt.Errorf("pdf_images: row %d: %v: %w", c.rowid, err, ErrRender)
		}
		return data, nil
	}

	b, err := c.cur.Bounds()
	if err != nil {
		return nil, fmt.Errorf("pdf_images: row %d: can't get bounds: %w", c.rowid, err)
	}
	switch col {
	case imageColX:
		return b.Left, nil
	case imageColY:
		return b.Top, nil
	case imageColWidth:
		return b.Width(), nil
	case imageColHeight:
		return b.Height(), nil
	default:
		return nil, fmt.Errorf("pdf_images: unknown column %d", col)
	}
}

func (c *imagesCursor) Rowid() (int64, error) {
	if !c.filtered {
		return 0, ErrNotFiltered
	}
	return c.rowid, nil
}

func (c *imagesCursor) Close() error { return c.reset() }

func (c *imagesCursor) reset() error {
	err := c.drop()
	c.rowid, c.filtered = 0, false
	return err
}

// drop closes the iterator and releases the page binding, the cursor stays filtered
func (c *imagesCursor) drop() error {
	bound, it := c.bound, c.it
	c.bound, c.it, c.cur = nil, nil, nil
	if it != nil {
		_ = it.Close()
	}
	if err := bound.release(); err != nil {
		return fmt.Errorf("pdf_images: %w", err)
	}
	return nil
}
