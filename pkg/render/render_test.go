package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	kind ObjectKind
	id   int
}

func (o fakeObject) Kind() ObjectKind      { return o.kind }
func (o fakeObject) Bounds() (Rect, error) { return Rect{}, nil }

type fakeImage struct{ fakeObject }

func (o fakeImage) Image() (image.Image, error) { return nil, errors.New("not used") }

type failingIterator struct{ Iterator[Object] }

func (failingIterator) Err() error { return errors.New("broken stream") }

func TestImages(t *testing.T) {
	objs := []Object{
		fakeObject{kind: ObjectText, id: 1},
		fakeImage{fakeObject{kind: ObjectImage, id: 2}},
		fakeObject{kind: ObjectPath, id: 3},
		fakeObject{kind: ObjectImage, id: 4}, // image kind without pixels is skipped
		fakeImage{fakeObject{kind: ObjectImage, id: 5}},
	}
	it := Images(Slice(objs))
	var ids []int
	for it.Next() {
		ids = append(ids, it.Value().(fakeImage).id)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int{2, 5}, ids)
	assert.False(t, it.Next(), "exhausted iterator stays exhausted")
	require.NoError(t, it.Close())
}

func TestImages_NoMatch(t *testing.T) {
	it := Images(Slice([]Object{fakeObject{kind: ObjectText}, fakeObject{kind: ObjectForm}}))
	assert.False(t, it.Next())

	empty := Images(Slice[Object](nil))
	assert.False(t, empty.Next())
	assert.Nil(t, empty.Value())
}

func TestKeep_PropagatesErr(t *testing.T) {
	it := Keep[Object](failingIterator{Slice[Object](nil)}, func(Object) bool { return true })
	assert.False(t, it.Next())
	assert.EqualError(t, it.Err(), "broken stream")
}

func TestObjectKind_String(t *testing.T) {
	assert.Equal(t, "image", ObjectImage.String())
	assert.Equal(t, "text", ObjectText.String())
	assert.Equal(t, "unknown", ObjectKind(99).String())
}

func TestRect(t *testing.T) {
	r := Rect{Left: 10, Top: 200, Right: 110, Bottom: 150}
	assert.InDelta(t, 100.0, r.Width(), 1e-9)
	assert.InDelta(t, 50.0, r.Height(), 1e-9)
}

func TestEncodePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 80), B: 10, A: 255})
		}
	}
	first, err := EncodePNG(img)
	require.NoError(t, err)
	second, err := EncodePNG(img)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	decoded, err := png.Decode(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	_, err = EncodePNG(nil)
	require.Error(t, err)
	_, err = EncodePNG(image.NewRGBA(image.Rectangle{}))
	require.Error(t, err)
}

func TestFitSize(t *testing.T) {
	tbl := []struct {
		name          string
		width, height float64
		w, h          int
		err           bool
	}{
		{name: "portrait letter", width: 612, height: 792, w: 198, h: 256},
		{name: "landscape", width: 800, height: 400, w: 256, h: 128},
		{name: "square", width: 100, height: 100, w: 256, h: 256},
		{name: "very thin", width: 10000, height: 1, w: 256, h: 1},
		{name: "zero", width: 0, height: 10, err: true},
		{name: "negative", width: 10, height: -1, err: true},
		{name: "nan", width: math.NaN(), height: 10, err: true},
		{name: "inf", width: math.Inf(1), height: 10, err: true},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := FitSize(tt.width, tt.height, ThumbnailSide)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}
