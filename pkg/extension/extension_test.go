package extension

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/sqlpdf/pkg/handle"
	"github.com/umputun/sqlpdf/pkg/render/memory"
	"github.com/umputun/sqlpdf/pkg/tables"
)

// driver registrations are process wide, all tests share one database
var (
	testDB     *sql.DB
	testEngine = memory.NewEngine()
)

func TestMain(m *testing.M) {
	if _, err := Open(context.Background(), ":memory:"); !errors.Is(err, ErrNotRegistered) {
		panic("open before register must fail")
	}
	if err := Register(tables.Env{Engine: testEngine, Registry: handle.NewRegistry()}); err != nil {
		panic(err)
	}
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		panic(err)
	}
	testDB = db
	code := m.Run()
	_ = db.Close()
	os.Exit(code)
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestRegister_Twice(t *testing.T) {
	err := Register(tables.Env{Engine: memory.NewEngine(), Registry: handle.NewRegistry()})
	require.Error(t, err)
}

func TestPages(t *testing.T) {
	rows, err := testDB.Query("SELECT rowid, width, height, label, full_text, pdf FROM pdf_pages(?)", fixture(t, "multi.yml"))
	require.NoError(t, err)
	defer rows.Close()

	type page struct {
		rowid         int64
		width, height float64
		label, text   sql.NullString
		pdf           []byte
	}
	var res []page
	for rows.Next() {
		var p page
		require.NoError(t, rows.Scan(&p.rowid, &p.width, &p.height, &p.label, &p.text, &p.pdf))
		res = append(res, p)
	}
	require.NoError(t, rows.Err())
	require.Len(t, res, 3)
	for i, p := range res {
		assert.Equal(t, int64(i), p.rowid)
		assert.Greater(t, p.width, 0.0)
		assert.Greater(t, p.height, 0.0)
		assert.Nil(t, p.pdf, "hidden column reads as null")
	}
	assert.Equal(t, sql.NullString{String: "i", Valid: true}, res[0].label)
	assert.False(t, res[1].label.Valid)
	assert.Equal(t, "body text", res[1].text.String)
	assert.InDelta(t, 842.0, res[2].width, 1e-9)
}

func TestOnePageScenario(t *testing.T) {
	doc := fixture(t, "single.yml")

	var pages int
	require.NoError(t, testDB.QueryRow("SELECT count(*) FROM pdf_pages(?)", doc).Scan(&pages))
	assert.Equal(t, 1, pages)

	var x, y, w, h float64
	var img []byte
	err := testDB.QueryRow(`SELECT i.x, i.y, i.width, i.height, i.image
		FROM pdf_pages(?) p JOIN pdf_images(p.page) i`, doc).Scan(&x, &y, &w, &h, &img)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 600, 200, 150}, []float64{x, y, w, h})
	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Bounds().Dx())

	var typ string
	var contents, modified sql.NullString
	err = testDB.QueryRow(`SELECT a.type, a.contents, a.modified_at
		FROM pdf_pages(?) p JOIN pdf_annotations(p.page) a`, doc).Scan(&typ, &contents, &modified)
	require.NoError(t, err)
	assert.Equal(t, "text", typ)
	assert.Equal(t, "check the numbers", contents.String)
	assert.False(t, modified.Valid)

	assert.Equal(t, 0, testEngine.Opened(), "documents closed after queries")
}

func TestJoinAcrossPages(t *testing.T) {
	doc := fixture(t, "multi.yml")

	rows, err := testDB.Query(`SELECT p.rowid, i.rowid, i.width
		FROM pdf_pages(?) p JOIN pdf_images(p.page) i ORDER BY p.rowid, i.rowid`, doc)
	require.NoError(t, err)
	defer rows.Close()
	var got [][3]float64
	for rows.Next() {
		var pg, img int64
		var w float64
		require.NoError(t, rows.Scan(&pg, &img, &w))
		got = append(got, [3]float64{float64(pg), float64(img), w})
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, [][3]float64{{1, 0, 100}, {1, 1, 60}, {2, 0, 2}}, got)

	var kinds []string
	rows, err = testDB.Query(`SELECT a.type FROM pdf_pages(?) p JOIN pdf_annotations(p.page) a`, doc)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var k string
		require.NoError(t, rows.Scan(&k))
		kinds = append(kinds, k)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"link", "popup", "unknown"}, kinds)
}

func TestThumbnail(t *testing.T) {
	doc := fixture(t, "single.yml")
	var first, second []byte
	require.NoError(t, testDB.QueryRow("SELECT pdf_page_thumbnail(page) FROM pdf_pages(?)", doc).Scan(&first))
	require.NoError(t, testDB.QueryRow("SELECT pdf_page_thumbnail(page) FROM pdf_pages(?)", doc).Scan(&second))
	assert.Equal(t, first, second)

	img, err := png.Decode(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dy())
	assert.Equal(t, 198, img.Bounds().Dx())

	_, err = testDB.Exec("SELECT pdf_page_thumbnail('not a page')")
	require.Error(t, err)
}

func TestPlanRejected(t *testing.T) {
	tbl := []struct {
		name  string
		query string
	}{
		{name: "pages without document", query: "SELECT * FROM pdf_pages"},
		{name: "images without page", query: "SELECT * FROM pdf_images"},
		{name: "annotations without page", query: "SELECT * FROM pdf_annotations"},
		{name: "range on page", query: "SELECT * FROM pdf_images WHERE page > x'00'"},
		{name: "filter on other column only", query: "SELECT * FROM pdf_annotations WHERE type = 'text'"},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := testDB.Query(tt.query)
			if err == nil {
				// some drivers defer preparation to the first step
				rows.Next()
				err = rows.Err()
				rows.Close()
			}
			require.Error(t, err)
		})
	}
}

func TestMalformedDocument(t *testing.T) {
	var n int
	err := testDB.QueryRow("SELECT count(*) FROM pdf_pages(?)", []byte("%PDF-1.4 truncated")).Scan(&n)
	require.Error(t, err)

	err = testDB.QueryRow("SELECT count(*) FROM pdf_images(x'00')").Scan(&n)
	require.Error(t, err, "bare blob is not a page handle")
}
