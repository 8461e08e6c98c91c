package tables

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/sqlpdf/pkg/handle"
	"github.com/umputun/sqlpdf/pkg/render"
	"github.com/umputun/sqlpdf/pkg/render/mocks"
)

func TestThumbnail(t *testing.T) {
	env, _ := newEnv()
	pages, cells := pageCells(t, env, fixture(t, "multi.yml"))
	defer pages.Close()
	fn := Thumbnail(env)

	tbl := []struct {
		name   string
		page   int
		bounds image.Rectangle
	}{
		{name: "portrait", page: 1, bounds: image.Rect(0, 0, 198, 256)},
		{name: "landscape", page: 2, bounds: image.Rect(0, 0, 256, 181)},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			first, err := fn(nil, []driver.Value{cells[tt.page]})
			require.NoError(t, err)
			second, err := fn(nil, []driver.Value{cells[tt.page]})
			require.NoError(t, err)
			assert.Equal(t, first, second, "same handle gives identical bytes")

			img, err := png.Decode(bytes.NewReader(first.([]byte)))
			require.NoError(t, err)
			assert.Equal(t, tt.bounds, img.Bounds())
		})
	}
	assert.Equal(t, 1, env.Registry.Live(), "thumbnail leases are released")
}

func TestThumbnail_Errors(t *testing.T) {
	env, _ := newEnv()
	pages, cells := pageCells(t, env, fixture(t, "single.yml"))
	fn := Thumbnail(env)

	_, err := fn(nil, nil)
	require.Error(t, err)
	_, err = fn(nil, []driver.Value{cells[0], cells[0]})
	require.Error(t, err)
	_, err = fn(nil, []driver.Value{"page"})
	require.ErrorIs(t, err, handle.ErrNotHandle)

	require.NoError(t, pages.Close())
	_, err = fn(nil, []driver.Value{cells[0]})
	require.ErrorIs(t, err, handle.ErrStaleHandle)
}

func TestThumbnail_RenderFailure(t *testing.T) {
	page := &mocks.PageMock{
		SizeFunc:   func() (float64, float64, error) { return 100, 50, nil },
		RenderFunc: func(int, int) (image.Image, error) { return nil, errors.New("unsupported shading") },
		CloseFunc:  func() error { return nil },
	}
	doc := &mocks.DocumentMock{
		PageFunc:  func(int) (render.Page, error) { return page, nil },
		CloseFunc: func() error { return nil },
	}
	env := Env{Registry: handle.NewRegistry()}
	owner := env.Registry.Add(doc)
	defer owner.Release()

	_, err := Thumbnail(env)(nil, []driver.Value{env.Registry.Encode(PageTag, owner.Ref(0))})
	require.ErrorIs(t, err, ErrRender)
	require.Len(t, page.RenderCalls(), 1)
	assert.Equal(t, 256, page.RenderCalls()[0].Width)
	assert.Equal(t, 128, page.RenderCalls()[0].Height)
	assert.Len(t, page.CloseCalls(), 1)
}
