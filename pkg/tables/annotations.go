package tables

import (
	"fmt"

	"modernc.org/sqlite/vtab"

	"github.com/umputun/sqlpdf/pkg/render"
)

const annotationsSchema = "CREATE TABLE x(type, x, y, width, height, name, contents, creator, " +
	"created_at, modified_at, page HIDDEN)"

// pdf_annotations columns
const (
	annotColType = iota
	annotColX
	annotColY
	annotColWidth
	annotColHeight
	annotColName
	annotColContents
	annotColCreator
	annotColCreatedAt
	annotColModifiedAt
	annotColPage
)

// NewAnnotations makes the pdf_annotations module: every annotation of the page passed to page.
func NewAnnotations(env Env) *Module {
	return &Module{
		name:    "pdf_annotations",
		schema:  annotationsSchema,
		planner: planner{table: "pdf_annotations", parent: annotColPage},
		cursor:  func() vtab.Cursor { return &annotationsCursor{env: env} },
	}
}

type annotationsCursor struct {
	env      Env
	bound    *pageBinding
	it       render.Iterator[render.Annotation]
	cur      *render.Annotation
	rowid    int64
	filtered bool
}

func (c *annotationsCursor) Filter(idxNum int, _ string, vals []vtab.Value) error {
	if err := c.reset(); err != nil {
		return err
	}
	if err := checkPlan("pdf_annotations", idxNum, vals); err != nil {
		return err
	}
	bound, err := bindPage(c.env, vals[0])
	if err != nil {
		return fmt.Errorf("pdf_annotations: %w", err)
	}
	it, err := bound.page.Annotations()
	if err != nil {
		_ = bound.release()
		return fmt.Errorf("pdf_annotations: can't list annotations: %w", err)
	}
	c.bound, c.it, c.rowid, c.filtered = bound, it, 0, true
	return c.advance()
}

func (c *annotationsCursor) advance() error {
	if c.it.Next() {
		a := c.it.Value()
		c.cur = &a
		return nil
	}
	// exhausted, the page is not needed until the next filter
	iterErr := c.it.Err()
	if err := c.drop(); err != nil && iterErr == nil {
		return err
	}
	if iterErr != nil {
		return fmt.Errorf("pdf_annotations: can't read annotations: %w", iterErr)
	}
	return nil
}

func (c *annotationsCursor) Next() error {
	if !c.filtered {
		return ErrNotFiltered
	}
	if c.cur == nil {
		return nil
	}
	c.rowid++
	return c.advance()
}

func (c *annotationsCursor) Eof() bool { return c.cur == nil }

func (c *annotationsCursor) Column(col int) (vtab.Value, error) {
	if !c.filtered {
		return nil, ErrNotFiltered
	}
	if c.cur == nil {
		return nil, ErrNoRow
	}
	a := c.cur

	rect := func(get func(render.Rect) float64) vtab.Value {
		if a.Rect == nil {
			return nil
		}
		return get(*a.Rect)
	}
	text := func(s *string) vtab.Value {
		if s == nil {
			return nil
		}
		return *s
	}

	switch col {
	case annotColType:
		return annotationType(a.Kind), nil
	case annotColX:
		return rect(func(r render.Rect) float64 { return r.Left }), nil
	case annotColY:
		return rect(func(r render.Rect) float64 { return r.Top }), nil
	case annotColWidth:
		return rect(render.Rect.Width), nil
	case annotColHeight:
		return rect(render.Rect.Height), nil
	case annotColName:
		return text(a.Name), nil
	case annotColContents:
		return text(a.Contents), nil
	case annotColCreator:
		return text(a.Creator), nil
	case annotColCreatedAt:
		return text(a.CreatedAt), nil
	case annotColModifiedAt:
		return text(a.ModifiedAt), nil
	case annotColPage:
		return nil, nil
	default:
		return nil, fmt.Errorf("pdf_annotations: unknown column %d", col)
	}
}

func (c *annotationsCursor) Rowid() (int64, error) {
	if !c.filtered {
		return 0, ErrNotFiltered
	}
	return c.rowid, nil
}

func (c *annotationsCursor) Close() error { return c.reset() }

func (c *annotationsCursor) reset() error {
	err := c.drop()
	c.rowid, c.filtered = 0, false
	return err
}

// drop closes the iterator and releases the page binding, the cursor stays filtered
func (c *annotationsCursor) drop() error {
	bound, it := c.bound, c.it
	c.bound, c.it, c.cur = nil, nil, nil
	if it != nil {
		_ = it.Close()
	}
	if err := bound.release(); err != nil {
		return fmt.Errorf("pdf_annotations: %w", err)
	}
	return nil
}

// annotationType maps a subtype to its type tag, anything unmapped is "unknown"
func annotationType(k render.AnnotationKind) string {
	switch k {
	case render.AnnotText:
		return "text"
	case render.AnnotLink:
		return "link"
	case render.AnnotFreeText:
		return "freetext"
	case render.AnnotLine:
		return "line"
	case render.AnnotSquare:
		return "square"
	case render.AnnotCircle:
		return "circle"
	case render.AnnotPolygon:
		return "polygon"
	case render.AnnotPolyline:
		return "polyline"
	case render.AnnotHighlight:
		return "highlight"
	case render.AnnotUnderline:
		return "underline"
	case render.AnnotSquiggly:
		return "squiggly"
	case render.AnnotStrikeout:
		return "strikeout"
	case render.AnnotStamp:
		return "stamp"
	case render.AnnotCaret:
		return "caret"
	case render.AnnotInk:
		return "ink"
	case render.AnnotPopup:
		return "popup"
	case render.AnnotFileAttachment:
		return "fileattachment"
	case render.AnnotSound:
		return "sound"
	case render.AnnotMovie:
		return "movie"
	case render.AnnotWidget:
		return "widget"
	case render.AnnotScreen:
		return "screen"
	case render.AnnotPrinterMark:
		return "printermark"
	case render.AnnotTrapNet:
		return "trapnet"
	case render.AnnotWatermark:
		return "watermark"
	case render.AnnotThreeD:
		return "threed"
	case render.AnnotRichMedia:
		return "richmedia"
	case render.AnnotXFAWidget:
		return "xfawidget"
	case render.AnnotRedact:
		return "redacted"
	default:
		return "unknown"
	}
}
