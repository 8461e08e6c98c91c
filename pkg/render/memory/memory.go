// Package memory implements render.Engine over documents described in YAML.
// It is used for testing purposes and as a development engine of the cli.
package memory

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/umputun/sqlpdf/pkg/render"
)

// Document is the YAML layout of an in-memory document.
type Document struct {
	Pages []Page `yaml:"pages"`
}

// Page describes one page.
type Page struct {
	Width       float64      `yaml:"width"`
	Height      float64      `yaml:"height"`
	Label       *string      `yaml:"label"`
	Text        string       `yaml:"text"`
	Background  string       `yaml:"background"`
	Objects     []Object     `yaml:"objects"`
	Annotations []Annotation `yaml:"annotations"`
}

// Object describes a drawable object. Image is set for kind "image".
type Object struct {
	Kind   string      `yaml:"kind"`
	Bounds render.Rect `yaml:"bounds"`
	Image  *Raster     `yaml:"image"`
}

// Raster is a solid colour bitmap. Broken makes rendering fail.
type Raster struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Color  string `yaml:"color"`
	Broken bool   `yaml:"broken"`
}

// Annotation describes an annotation, Subtype is the PDF subtype name, like "Text" or "Link".
type Annotation struct {
	Subtype    string       `yaml:"subtype"`
	Rect       *render.Rect `yaml:"rect"`
	Name       *string      `yaml:"name"`
	Contents   *string      `yaml:"contents"`
	Creator    *string      `yaml:"creator"`
	CreatedAt  *string      `yaml:"created_at"`
	ModifiedAt *string      `yaml:"modified_at"`
}

var objectKinds = map[string]render.ObjectKind{
	"text":    render.ObjectText,
	"path":    render.ObjectPath,
	"image":   render.ObjectImage,
	"shading": render.ObjectShading,
	"form":    render.ObjectForm,
}

var subtypes = map[string]render.AnnotationKind{
	"Text": render.AnnotText, "Link": render.AnnotLink, "FreeText": render.AnnotFreeText,
	"Line": render.AnnotLine, "Square": render.AnnotSquare, "Circle": render.AnnotCircle,
	"Polygon": render.AnnotPolygon, "PolyLine": render.AnnotPolyline,
	"Highlight": render.AnnotHighlight, "Underline": render.AnnotUnderline,
	"Squiggly": render.AnnotSquiggly, "StrikeOut": render.AnnotStrikeout,
	"Stamp": render.AnnotStamp, "Caret": render.AnnotCaret, "Ink": render.AnnotInk,
	"Popup": render.AnnotPopup, "FileAttachment": render.AnnotFileAttachment,
	"Sound": render.AnnotSound, "Movie": render.AnnotMovie, "Widget": render.AnnotWidget,
	"Screen": render.AnnotScreen, "PrinterMark": render.AnnotPrinterMark,
	"TrapNet": render.AnnotTrapNet, "Watermark": render.AnnotWatermark,
	"3D": render.AnnotThreeD, "RichMedia": render.AnnotRichMedia,
	"XFAWidget": render.AnnotXFAWidget, "Redact": render.AnnotRedact,
}

// Engine opens YAML documents. Safe for concurrent use.
type Engine struct {
	open atomic.Int64
}

// NewEngine makes a memory engine.
func NewEngine() *Engine { return &Engine{} }

// Open decodes data strictly, unknown fields and bad values are errors.
func (e *Engine) Open(data []byte) (render.Document, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrMalformed, err)
	}
	e.open.Add(1)
	log.Printf("[DEBUG] memory document opened, %d pages", len(doc.Pages))
	return &document{Document: doc, engine: e}, nil
}

// Opened returns the count of documents not closed yet.
func (e *Engine) Opened() int { return int(e.open.Load()) }

// Close does nothing, memory documents hold no external resources.
func (e *Engine) Close() error { return nil }

// Parse decodes and validates a YAML document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, errors.New("empty document")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("can't decode document: %w", err)
	}
	if err := doc.validate(); err != nil {
		return doc, fmt.Errorf("invalid document: %w", err)
	}
	return doc, nil
}

func (d Document) validate() error {
	if len(d.Pages) == 0 {
		return errors.New("no pages")
	}
	for i, p := range d.Pages {
		if !(p.Width > 0) || !(p.Height > 0) || math.IsInf(p.Width, 0) || math.IsInf(p.Height, 0) {
			return fmt.Errorf("page %d: invalid size %vx%v", i, p.Width, p.Height)
		}
		if _, err := parseColor(p.Background, color.White); err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
		for j, o := range p.Objects {
			k, ok := objectKinds[o.Kind]
			if !ok {
				return fmt.Errorf("page %d, object %d: unknown kind %q", i, j, o.Kind)
			}
			if k == render.ObjectImage && o.Image == nil {
				return fmt.Errorf("page %d, object %d: image without raster", i, j)
			}
			if o.Image != nil {
				if _, err := parseColor(o.Image.Color, color.Black); err != nil {
					return fmt.Errorf("page %d, object %d: %w", i, j, err)
				}
			}
		}
		for j, a := range p.Annotations {
			if _, ok := subtypes[a.Subtype]; !ok && a.Subtype != "" {
				// unknown subtypes are kept and reported as render.AnnotUnknown
				log.Printf("[DEBUG] page %d, annotation %d: unknown subtype %q", i, j, a.Subtype)
			}
		}
	}
	return nil
}

// parseColor reads "#rrggbb" or "#rrggbbaa", empty string gives def
func parseColor(s string, def color.Color) (color.Color, error) {
	if s == "" {
		return def, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return nil, fmt.Errorf("bad color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("bad color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

type document struct {
	Document
	engine *Engine
	once   sync.Once
	closed atomic.Bool
}

func (d *document) PageCount() (int, error) {
	if d.closed.Load() {
		return 0, errors.New("document closed")
	}
	return len(d.Pages), nil
}

func (d *document) Page(index int) (render.Page, error) {
	if d.closed.Load() {
		return nil, errors.New("document closed")
	}
	if index < 0 || index >= len(d.Pages) {
		return nil, fmt.Errorf("page %d out of range [0,%d)", index, len(d.Pages))
	}
	return &page{desc: d.Pages[index], doc: d}, nil
}

func (d *document) Close() error {
	d.once.Do(func() {
		d.closed.Store(true)
		d.engine.open.Add(-1)
	})
	return nil
}

type page struct {
	desc Page
	doc  *document
}

func (p *page) alive() error {
	if p.doc.closed.Load() {
		return errors.New("document closed")
	}
	return nil
}

func (p *page) Size() (width, height float64, err error) {
	if err := p.alive(); err != nil {
		return 0, 0, err
	}
	return p.desc.Width, p.desc.Height, nil
}

func (p *page) Label() (label string, ok bool, err error) {
	if err := p.alive(); err != nil {
		return "", false, err
	}
	if p.desc.Label == nil {
		return "", false, nil
	}
	return *p.desc.Label, true, nil
}

func (p *page) Text() (string, error) {
	if err := p.alive(); err != nil {
		return "", err
	}
	return p.desc.Text, nil
}

func (p *page) Objects() (render.Iterator[render.Object], error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	res := make([]render.Object, 0, len(p.desc.Objects))
	for _, o := range p.desc.Objects {
		base := object{kind: objectKinds[o.Kind], bounds: o.Bounds}
		if o.Image != nil && base.kind == render.ObjectImage {
			res = append(res, &imageObject{object: base, raster: *o.Image})
			continue
		}
		res = append(res, &base)
	}
	return render.Slice(res), nil
}

func (p *page) Annotations() (render.Iterator[render.Annotation], error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	res := make([]render.Annotation, 0, len(p.desc.Annotations))
	for _, a := range p.desc.Annotations {
		res = append(res, render.Annotation{
			Kind:       subtypes[a.Subtype],
			Rect:       a.Rect,
			Name:       a.Name,
			Contents:   a.Contents,
			Creator:    a.Creator,
			CreatedAt:  a.CreatedAt,
			ModifiedAt: a.ModifiedAt,
		})
	}
	return render.Slice(res), nil
}

// Render paints the background and every image object scaled into a width x height bitmap.
func (p *page) Render(width, height int) (image.Image, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid render size %dx%d", width, height)
	}
	bg, err := parseColor(p.desc.Background, color.White)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	sx, sy := float64(width)/p.desc.Width, float64(height)/p.desc.Height
	for _, o := range p.desc.Objects {
		if o.Image == nil {
			continue
		}
		c, err := parseColor(o.Image.Color, color.Black)
		if err != nil {
			return nil, err
		}
		// page space origin is bottom left, bitmap origin is top left
		r := image.Rect(
			int(math.Round(o.Bounds.Left*sx)), int(math.Round((p.desc.Height-o.Bounds.Top)*sy)),
			int(math.Round(o.Bounds.Right*sx)), int(math.Round((p.desc.Height-o.Bounds.Bottom)*sy)),
		)
		draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
	}
	return img, nil
}

func (p *page) Close() error { return nil }

type object struct {
	kind   render.ObjectKind
	bounds render.Rect
}

func (o *object) Kind() render.ObjectKind      { return o.kind }
func (o *object) Bounds() (render.Rect, error) { return o.bounds, nil }

type imageObject struct {
	object
	raster Raster
}

func (o *imageObject) Image() (image.Image, error) {
	if o.raster.Broken {
		return nil, errors.New("corrupt image stream")
	}
	if o.raster.Width <= 0 || o.raster.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", o.raster.Width, o.raster.Height)
	}
	c, err := parseColor(o.raster.Color, color.Black)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, o.raster.Width, o.raster.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img, nil
}
