package tables

import (
	"database/sql/driver"
	"fmt"

	"modernc.org/sqlite"

	"github.com/umputun/sqlpdf/pkg/render"
)

// ThumbnailFunc is the name of the page thumbnail function.
const ThumbnailFunc = "pdf_page_thumbnail"

// Thumbnail returns pdf_page_thumbnail(page): the page rendered as PNG so that its
// longest side is render.ThumbnailSide pixels.
func Thumbnail(env Env) func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: want 1 argument, got %d", ThumbnailFunc, len(args))
		}
		return thumbnail(env, args[0])
	}
}

func thumbnail(env Env, cell driver.Value) (res []byte, err error) {
	bound, err := bindPage(env, cell)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ThumbnailFunc, err)
	}
	defer func() {
		if rerr := bound.release(); rerr != nil && err == nil {
			err = fmt.Errorf("%s: %w", ThumbnailFunc, rerr)
		}
	}()

	pw, ph, err := bound.page.Size()
	if err != nil {
		return nil, fmt.Errorf("%s: can't get page size: %w", ThumbnailFunc, err)
	}
	w, h, err := render.FitSize(pw, ph, render.ThumbnailSide)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ThumbnailFunc, err)
	}
	img, err := bound.page.Render(w, h)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", ThumbnailFunc, err, ErrRender)
	}
	data, err := render.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", ThumbnailFunc, err, ErrRender)
	}
	return data, nil
}
