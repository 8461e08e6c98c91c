package tables

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modernc.org/sqlite/vtab"

	"github.com/umputun/sqlpdf/pkg/handle"
	"github.com/umputun/sqlpdf/pkg/render"
	"github.com/umputun/sqlpdf/pkg/render/memory"
	"github.com/umputun/sqlpdf/pkg/render/mocks"
)

func newEnv() (Env, *memory.Engine) {
	eng := memory.NewEngine()
	return Env{Engine: eng, Registry: handle.NewRegistry()}, eng
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func openCursor(t *testing.T, m *Module) vtab.Cursor {
	t.Helper()
	tbl, err := m.Connect(vtab.NewContext(func(string) error { return nil }), nil)
	require.NoError(t, err)
	cur, err := tbl.Open()
	require.NoError(t, err)
	return cur
}

type row struct {
	rowid int64
	vals  []vtab.Value
}

// scan reads the remaining rows of a filtered cursor
func scan(t *testing.T, cur vtab.Cursor, cols ...int) []row {
	t.Helper()
	var res []row
	for !cur.Eof() {
		id, err := cur.Rowid()
		require.NoError(t, err)
		r := row{rowid: id}
		for _, c := range cols {
			v, err := cur.Column(c)
			require.NoError(t, err)
			r.vals = append(r.vals, v)
		}
		res = append(res, r)
		require.NoError(t, cur.Next())
	}
	return res
}

// pageCells filters a pdf_pages cursor over data and returns it with the handle cell of every page
func pageCells(t *testing.T, env Env, data []byte) (vtab.Cursor, []vtab.Value) {
	t.Helper()
	pages := openCursor(t, NewPages(env))
	require.NoError(t, pages.Filter(idxParentKey, "", []vtab.Value{data}))
	var cells []vtab.Value
	for _, r := range scan(t, pages, pageColPage) {
		cells = append(cells, r.vals[0])
	}
	return pages, cells
}

func TestModule_Connect(t *testing.T) {
	env, _ := newEnv()
	tbl := []struct {
		module *Module
		schema string
	}{
		{NewPages(env), pagesSchema},
		{NewImages(env), imagesSchema},
		{NewAnnotations(env), annotationsSchema},
	}
	for _, tt := range tbl {
		t.Run(tt.module.Name(), func(t *testing.T) {
			var declared string
			ctx := vtab.NewContext(func(s string) error { declared = s; return nil })
			tab, err := tt.module.Create(ctx, []string{tt.module.Name(), "temp", tt.module.Name()})
			require.NoError(t, err)
			assert.Equal(t, tt.schema, declared)
			require.NoError(t, tab.Disconnect())
			require.NoError(t, tab.Destroy())

			ctx = vtab.NewContext(func(string) error { return errors.New("bad schema") })
			_, err = tt.module.Connect(ctx, nil)
			require.Error(t, err)
		})
	}

	var names []string
	for _, m := range Modules(env) {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"pdf_pages", "pdf_images", "pdf_annotations"}, names)
}

func TestPages_Rows(t *testing.T) {
	env, eng := newEnv()
	cur := openCursor(t, NewPages(env))
	require.NoError(t, cur.Filter(idxParentKey, "", []vtab.Value{fixture(t, "multi.yml")}))
	assert.Equal(t, 1, eng.Opened())

	rows := scan(t, cur, pageColWidth, pageColHeight, pageColLabel, pageColText, pageColPDF)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, int64(i), r.rowid)
	}
	assert.Equal(t, []vtab.Value{612.0, 792.0, "i", "cover", nil}, rows[0].vals)
	assert.Equal(t, []vtab.Value{612.0, 792.0, nil, "body text", nil}, rows[1].vals)
	assert.Equal(t, []vtab.Value{842.0, 595.0, "3", "", nil}, rows[2].vals)

	_, err := cur.Column(pageColWidth)
	require.ErrorIs(t, err, ErrNoRow)

	require.NoError(t, cur.Close())
	assert.Equal(t, 0, eng.Opened())
	assert.Equal(t, 0, env.Registry.Live())
}

func TestPages_HandleCells(t *testing.T) {
	env, _ := newEnv()
	pages, cells := pageCells(t, env, fixture(t, "multi.yml"))
	defer pages.Close()
	require.Len(t, cells, 3)
	for i, cell := range cells {
		ref, err := env.Registry.Decode(PageTag, cell)
		require.NoError(t, err)
		assert.Equal(t, i, ref.Page)
	}
	assert.NotEqual(t, cells[0], cells[1])
}

func TestPages_Malformed(t *testing.T) {
	env, eng := newEnv()
	cur := openCursor(t, NewPages(env))
	tbl := []struct {
		name string
		val  vtab.Value
	}{
		{name: "garbage", val: []byte("%PDF-1.7\x00garbage")},
		{name: "empty", val: []byte{}},
		{name: "null", val: nil},
		{name: "number", val: int64(42)},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			err := cur.Filter(idxParentKey, "", []vtab.Value{tt.val})
			require.ErrorIs(t, err, ErrMalformed)
			assert.True(t, cur.Eof())
		})
	}
	assert.Equal(t, 0, eng.Opened())
	assert.Equal(t, 0, env.Registry.Live())
}

func TestPages_TextDocument(t *testing.T) {
	env, _ := newEnv()
	cur := openCursor(t, NewPages(env))
	defer cur.Close()
	require.NoError(t, cur.Filter(idxParentKey, "", []vtab.Value{string(fixture(t, "single.yml"))}))
	assert.Len(t, scan(t, cur, pageColText), 1)
}

func TestPages_NotFiltered(t *testing.T) {
	env, _ := newEnv()
	cur := openCursor(t, NewPages(env))
	assert.True(t, cur.Eof())
	require.ErrorIs(t, cur.Next(), ErrNotFiltered)
	_, err := cur.Column(pageColWidth)
	require.ErrorIs(t, err, ErrNotFiltered)
	_, err = cur.Rowid()
	require.ErrorIs(t, err, ErrNotFiltered)

	require.ErrorIs(t, cur.Filter(idxUnplanned, "", []vtab.Value{fixture(t, "single.yml")}), ErrPlan)
	assert.True(t, cur.Eof())
	require.NoError(t, cur.Close())
}

func TestPages_RefilterRestarts(t *testing.T) {
	env, eng := newEnv()
	cur := openCursor(t, NewPages(env))
	data := fixture(t, "multi.yml")

	require.NoError(t, cur.Filter(idxParentKey, "", []vtab.Value{data}))
	first := scan(t, cur, pageColWidth, pageColHeight, pageColLabel, pageColText)
	require.NoError(t, cur.Filter(idxParentKey, "", []vtab.Value{data}))
	second := scan(t, cur, pageColWidth, pageColHeight, pageColLabel, pageColText)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, eng.Opened(), "previous session closed on refilter")
	assert.Equal(t, 1, env.Registry.Live())

	require.NoError(t, cur.Close())
	assert.Equal(t, 0, eng.Opened())
}

func TestPages_MaterializeOncePerRow(t *testing.T) {
	var loads, texts int
	doc := &mocks.DocumentMock{
		PageCountFunc: func() (int, error) { return 2, nil },
		PageFunc: func(index int) (render.Page, error) {
			loads++
			return &mocks.PageMock{
				SizeFunc:  func() (float64, float64, error) { return float64(100 + index), 200, nil },
				LabelFunc: func() (string, bool, error) { return "", false, nil },
				TextFunc: func() (string, error) {
					texts++
					return "text", nil
				},
				CloseFunc: func() error { return nil },
			}, nil
		},
		CloseFunc: func() error { return nil },
	}
	eng := &mocks.EngineMock{OpenFunc: func([]byte) (render.Document, error) { return doc, nil }}
	env := Env{Engine: eng, Registry: handle.NewRegistry()}

	cur := openCursor(t, NewPages(env))
	require.NoError(t, cur.Filter(idxParentKey, "", []vtab.Value{[]byte("doc")}))
	_, err := cur.Column(pageColPage)
	require.NoError(t, err)
	assert.Equal(t, 0, loads, "handle column does not load the page")

	rows := scan(t, cur, pageColWidth, pageColHeight, pageColText, pageColWidth)
	require.Len(t, rows, 2)
	assert.Equal(t, []vtab.Value{101.0, 200.0, "text", 101.0}, rows[1].vals)
	assert.Equal(t, 2, loads)
	assert.Equal(t, 2, texts, "text read once per row")

	require.NoError(t, cur.Close())
	assert.Len(t, doc.CloseCalls(), 1)
	assert.Len(t, eng.OpenCalls(), 1)
}

func TestPages_PageErrors(t *testing.T) {
	doc := &mocks.DocumentMock{
		PageCountFunc: func() (int, error) { return 1, nil },
		PageFunc:      func(int) (render.Page, error) { return nil, errors.New("no such page") },
		CloseFunc:     func() error { return nil },
	}
	env := Env{
		Engine:   &mocks.EngineMock{OpenFunc: func([]byte) (render.Document, error) { return doc, nil }},
		Registry: handle.NewRegistry(),
	}
	cur := openCursor(t, NewPages(env))
	defer cur.Close()
	require.NoError(t, cur.Filter(idxParentKey, "", []vtab.Value{[]byte("doc")}))
	_, err := cur.Column(pageColText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such page")

	doc.PageCountFunc = func() (int, error) { return 0, errors.New("broken xref") }
	err = cur.Filter(idxParentKey, "", []vtab.Value{[]byte("doc")})
	require.ErrorContains(t, err, "broken xref")
	assert.NotErrorIs(t, err, ErrMalformed, "only parse failures are malformed")
}

func TestPages_EngineErrors(t *testing.T) {
	busy := errors.New("can't get pdfium instance: timeout")
	env := Env{
		Engine:   &mocks.EngineMock{OpenFunc: func([]byte) (render.Document, error) { return nil, busy }},
		Registry: handle.NewRegistry(),
	}
	cur := openCursor(t, NewPages(env))
	defer cur.Close()
	err := cur.Filter(idxParentKey, "", []vtab.Value{[]byte("doc")})
	require.ErrorIs(t, err, busy)
	assert.NotErrorIs(t, err, ErrMalformed)
	assert.True(t, cur.Eof())
}
