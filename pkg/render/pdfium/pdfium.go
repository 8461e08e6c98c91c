// Package pdfium implements render.Engine with PDFium compiled to WebAssembly.
// The engine takes a fixed set of instances from the pool on start. Documents are spread over them
// and share an instance with its lock, so opening a document never waits for a free instance.
package pdfium

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/enums"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"

	"github.com/umputun/sqlpdf/pkg/render"
)

// annotation keys read as optional text fields
const (
	keyName     = "NM"
	keyContents = "Contents"
	keyCreator  = "T"
	keyCreated  = "CreationDate"
	keyModified = "M"
)

// Config defines the number of instances and how long New waits for each of them.
type Config struct {
	Instances int
	Timeout   time.Duration
}

// Engine spreads documents over a fixed set of pdfium instances.
type Engine struct {
	pool    pdfium.Pool
	workers []*worker
	next    atomic.Uint64
}

// worker is an instance shared by the documents opened on it, calls are serialised by mu
type worker struct {
	mu   sync.Mutex
	inst pdfium.Pdfium
}

// New starts the webassembly pool and takes all of its instances.
func New(cfg Config) (*Engine, error) {
	if cfg.Instances <= 0 {
		cfg.Instances = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	pool, err := webassembly.Init(webassembly.Config{MinIdle: cfg.Instances, MaxIdle: cfg.Instances, MaxTotal: cfg.Instances})
	if err != nil {
		return nil, fmt.Errorf("can't init pdfium pool: %w", err)
	}
	res := &Engine{pool: pool}
	for i := 0; i < cfg.Instances; i++ {
		inst, err := pool.GetInstance(cfg.Timeout)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("can't get pdfium instance %d: %w", i, err)
		}
		res.workers = append(res.workers, &worker{inst: inst})
	}
	log.Printf("[INFO] pdfium pool started, instances: %d", cfg.Instances)
	return res, nil
}

// Open parses data as a PDF document. Parse failures wrap render.ErrMalformed.
func (e *Engine) Open(data []byte) (render.Document, error) {
	if len(e.workers) == 0 {
		return nil, errors.New("pdfium engine closed")
	}
	w := e.workers[(e.next.Add(1)-1)%uint64(len(e.workers))]
	buf := append([]byte(nil), data...)
	w.mu.Lock()
	defer w.mu.Unlock()
	resp, err := w.inst.OpenDocument(&requests.OpenDocument{File: &buf})
	if err != nil {
		return nil, fmt.Errorf("can't open document: %w: %w", render.ErrMalformed, err)
	}
	return &document{w: w, ref: resp.Document}, nil
}

// Close returns the instances and shuts the pool down.
func (e *Engine) Close() error {
	errs := new(multierror.Error)
	for _, w := range e.workers {
		w.mu.Lock()
		if err := w.inst.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("can't close pdfium instance: %w", err))
		}
		w.mu.Unlock()
	}
	e.workers = nil
	if err := e.pool.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("can't close pdfium pool: %w", err))
	}
	return errs.ErrorOrNil()
}

type document struct {
	w      *worker
	ref    references.FPDF_DOCUMENT
	closed bool // guarded by w.mu
}

// do runs fn on the shared instance, instances are not safe for concurrent calls
func (d *document) do(fn func(inst pdfium.Pdfium) error) error {
	d.w.mu.Lock()
	defer d.w.mu.Unlock()
	if d.closed {
		return errors.New("document closed")
	}
	return fn(d.w.inst)
}

func (d *document) PageCount() (count int, err error) {
	err = d.do(func(inst pdfium.Pdfium) error {
		resp, err := inst.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: d.ref})
		if err != nil {
			return fmt.Errorf("can't count pages: %w", err)
		}
		count = resp.PageCount
		return nil
	})
	return count, err
}

func (d *document) Page(index int) (render.Page, error) {
	var ref references.FPDF_PAGE
	err := d.do(func(inst pdfium.Pdfium) error {
		resp, err := inst.FPDF_LoadPage(&requests.FPDF_LoadPage{Document: d.ref, Index: index})
		if err != nil {
			return fmt.Errorf("can't load page %d: %w", index, err)
		}
		ref = resp.Page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page{doc: d, ref: ref, index: index}, nil
}

// Close frees the document, the instance stays with the engine.
func (d *document) Close() error {
	d.w.mu.Lock()
	defer d.w.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if _, err := d.w.inst.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: d.ref}); err != nil {
		return fmt.Errorf("can't close document: %w", err)
	}
	return nil
}

type page struct {
	doc   *document
	ref   references.FPDF_PAGE
	index int
}

func (p *page) req() requests.Page { return requests.Page{ByReference: &p.ref} }

func (p *page) Size() (width, height float64, err error) {
	err = p.doc.do(func(inst pdfium.Pdfium) error {
		resp, err := inst.GetPageSize(&requests.GetPageSize{Page: p.req()})
		if err != nil {
			return fmt.Errorf("can't get page size: %w", err)
		}
		width, height = resp.Width, resp.Height
		return nil
	})
	return width, height, err
}

func (p *page) Label() (label string, ok bool, err error) {
	err = p.doc.do(func(inst pdfium.Pdfium) error {
		resp, lerr := inst.FPDF_GetPageLabel(&requests.FPDF_GetPageLabel{Document: p.doc.ref, Page: p.index})
		if lerr != nil {
			// documents without page labels report an error here
			log.Printf("[DEBUG] no label for page %d, %v", p.index, lerr)
			return nil
		}
		label = resp.Label
		return nil
	})
	return label, err == nil && label != "", err
}

func (p *page) Text() (text string, err error) {
	err = p.doc.do(func(inst pdfium.Pdfium) error {
		resp, err := inst.GetPageText(&requests.GetPageText{Page: p.req()})
		if err != nil {
			return fmt.Errorf("can't get page text: %w", err)
		}
		text = resp.Text
		return nil
	})
	return text, err
}

func (p *page) Objects() (render.Iterator[render.Object], error) {
	var count int
	err := p.doc.do(func(inst pdfium.Pdfium) error {
		resp, err := inst.FPDFPage_CountObjects(&requests.FPDFPage_CountObjects{Page: p.req()})
		if err != nil {
			return fmt.Errorf("can't count page objects: %w", err)
		}
		count = resp.Count
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &objects{page: p, count: count, pos: -1}, nil
}

func (p *page) Annotations() (render.Iterator[render.Annotation], error) {
	var count int
	err := p.doc.do(func(inst pdfium.Pdfium) error {
		resp, err := inst.FPDFPage_GetAnnotCount(&requests.FPDFPage_GetAnnotCount{Page: p.req()})
		if err != nil {
			return fmt.Errorf("can't count annotations: %w", err)
		}
		count = resp.Count
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &annotations{page: p, count: count, pos: -1}, nil
}

func (p *page) Render(width, height int) (img image.Image, err error) {
	err = p.doc.do(func(inst pdfium.Pdfium) error {
		resp, err := inst.RenderPageInPixels(&requests.RenderPageInPixels{Page: p.req(), Width: width, Height: height})
		if err != nil {
			return fmt.Errorf("can't render page: %w", err)
		}
		defer resp.Cleanup()
		// result pixels belong to pdfium until cleanup
		src := resp.Result.Image
		dst := image.NewRGBA(src.Bounds())
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		img = dst
		return nil
	})
	return img, err
}

func (p *page) Close() error {
	return p.doc.do(func(inst pdfium.Pdfium) error {
		if _, err := inst.FPDF_ClosePage(&requests.FPDF_ClosePage{Page: p.ref}); err != nil {
			return fmt.Errorf("can't close page %d: %w", p.index, err)
		}
		return nil
	})
}

// objects walks page objects by index, each object is read on Next
type objects struct {
	page  *page
	count int
	pos   int
	cur   render.Object
	err   error
}

func (it *objects) Next() bool {
	if it.err != nil || it.pos+1 >= it.count {
		it.cur = nil
		return false
	}
	it.pos++
	err := it.page.doc.do(func(inst pdfium.Pdfium) error {
		obj, err := inst.FPDFPage_GetObject(&requests.FPDFPage_GetObject{Page: it.page.req(), Index: it.pos})
		if err != nil {
			return fmt.Errorf("can't get object %d: %w", it.pos, err)
		}
		typ, err := inst.FPDFPageObj_GetType(&requests.FPDFPageObj_GetType{PageObject: obj.PageObject})
		if err != nil {
			return fmt.Errorf("can't get object %d type: %w", it.pos, err)
		}
		base := &object{page: it.page, ref: obj.PageObject, kind: objectKind(typ.Type)}
		if base.kind == render.ObjectImage {
			it.cur = &imageObject{object: base}
			return nil
		}
		it.cur = base
		return nil
	})
	if err != nil {
		it.err, it.cur = err, nil
		return false
	}
	return true
}

func (it *objects) Value() render.Object { return it.cur }
func (it *objects) Err() error           { return it.err }
func (it *objects) Close() error         { return nil }

func objectKind(t enums.FPDF_PAGEOBJ) render.ObjectKind {
	k := render.ObjectKind(t)
	if k < render.ObjectUnknown || k > render.ObjectForm {
		return render.ObjectUnknown
	}
	return k
}

type object struct {
	page *page
	ref  references.FPDF_PAGEOBJECT
	kind render.ObjectKind
}

func (o *object) Kind() render.ObjectKind { return o.kind }

func (o *object) Bounds() (r render.Rect, err error) {
	err = o.page.doc.do(func(inst pdfium.Pdfium) error {
		resp, err := inst.FPDFPageObj_GetBounds(&requests.FPDFPageObj_GetBounds{PageObject: o.ref})
		if err != nil {
			return fmt.Errorf("can't get object bounds: %w", err)
		}
		r = render.Rect{Left: float64(resp.Left), Top: float64(resp.Top), Right: float64(resp.Right), Bottom: float64(resp.Bottom)}
		return nil
	})
	return r, err
}

type imageObject struct {
	*object
}

// Image renders the object with its mask and transformation matrix applied.
func (o *imageObject) Image() (img image.Image, err error) {
	err = o.page.doc.do(func(inst pdfium.Pdfium) error {
		resp, err := inst.FPDFImageObj_GetRenderedBitmap(&requests.FPDFImageObj_GetRenderedBitmap{
			Document: o.page.doc.ref, Page: o.page.req(), ImageObject: o.ref,
		})
		if err != nil {
			return fmt.Errorf("can't render image object: %w", err)
		}
		defer func() {
			_, _ = inst.FPDFBitmap_Destroy(&requests.FPDFBitmap_Destroy{Bitmap: resp.Bitmap})
		}()
		img, err = bitmapImage(inst, resp.Bitmap)
		return err
	})
	return img, err
}

// bitmapImage copies a pdfium bitmap into an RGBA image
func bitmapImage(inst pdfium.Pdfium, bmp references.FPDF_BITMAP) (image.Image, error) {
	w, err := inst.FPDFBitmap_GetWidth(&requests.FPDFBitmap_GetWidth{Bitmap: bmp})
	if err != nil {
		return nil, fmt.Errorf("can't get bitmap width: %w", err)
	}
	h, err := inst.FPDFBitmap_GetHeight(&requests.FPDFBitmap_GetHeight{Bitmap: bmp})
	if err != nil {
		return nil, fmt.Errorf("can't get bitmap height: %w", err)
	}
	stride, err := inst.FPDFBitmap_GetStride(&requests.FPDFBitmap_GetStride{Bitmap: bmp})
	if err != nil {
		return nil, fmt.Errorf("can't get bitmap stride: %w", err)
	}
	format, err := inst.FPDFBitmap_GetFormat(&requests.FPDFBitmap_GetFormat{Bitmap: bmp})
	if err != nil {
		return nil, fmt.Errorf("can't get bitmap format: %w", err)
	}
	buf, err := inst.FPDFBitmap_GetBuffer(&requests.FPDFBitmap_GetBuffer{Bitmap: bmp})
	if err != nil {
		return nil, fmt.Errorf("can't get bitmap buffer: %w", err)
	}
	return convertBitmap(buf.Buffer, w.Width, h.Height, stride.Stride, format.Format)
}

// convertBitmap turns pdfium BGR* or gray pixels into RGBA
func convertBitmap(buf []byte, width, height, stride int, format enums.FPDF_BITMAP_FORMAT) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("empty bitmap %dx%d", width, height)
	}
	var bpp int
	switch format {
	case enums.FPDF_BITMAP_FORMAT_GRAY:
		bpp = 1
	case enums.FPDF_BITMAP_FORMAT_BGR:
		bpp = 3
	case enums.FPDF_BITMAP_FORMAT_BGRX, enums.FPDF_BITMAP_FORMAT_BGRA:
		bpp = 4
	default:
		return nil, fmt.Errorf("unsupported bitmap format %d", format)
	}
	if stride < width*bpp || len(buf) < stride*(height-1)+width*bpp {
		return nil, fmt.Errorf("short bitmap buffer %d for %dx%d stride %d", len(buf), width, height, stride)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := buf[y*stride:]
		for x := 0; x < width; x++ {
			px := row[x*bpp:]
			o := img.PixOffset(x, y)
			switch bpp {
			case 1:
				img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = px[0], px[0], px[0], 0xff
			case 3:
				img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = px[2], px[1], px[0], 0xff
			default:
				a := byte(0xff)
				if format == enums.FPDF_BITMAP_FORMAT_BGRA {
					a = px[3]
				}
				img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = px[2], px[1], px[0], a
			}
		}
	}
	return img, nil
}

// annotations reads one annotation per Next into a snapshot and closes its handle
type annotations struct {
	page  *page
	count int
	pos   int
	cur   render.Annotation
	err   error
}

func (it *annotations) Next() bool {
	if it.err != nil || it.pos+1 >= it.count {
		it.cur = render.Annotation{}
		return false
	}
	it.pos++
	err := it.page.doc.do(func(inst pdfium.Pdfium) error {
		resp, err := inst.FPDFPage_GetAnnot(&requests.FPDFPage_GetAnnot{Page: it.page.req(), Index: it.pos})
		if err != nil {
			return fmt.Errorf("can't get annotation %d: %w", it.pos, err)
		}
		defer func() {
			_, _ = inst.FPDFPage_CloseAnnot(&requests.FPDFPage_CloseAnnot{Annotation: resp.Annotation})
		}()
		it.cur, err = readAnnotation(inst, resp.Annotation)
		return err
	})
	if err != nil {
		it.err, it.cur = err, render.Annotation{}
		return false
	}
	return true
}

func (it *annotations) Value() render.Annotation { return it.cur }
func (it *annotations) Err() error               { return it.err }
func (it *annotations) Close() error             { return nil }

func readAnnotation(inst pdfium.Pdfium, ref references.FPDF_ANNOTATION) (render.Annotation, error) {
	sub, err := inst.FPDFAnnot_GetSubtype(&requests.FPDFAnnot_GetSubtype{Annotation: ref})
	if err != nil {
		return render.Annotation{}, fmt.Errorf("can't get annotation subtype: %w", err)
	}
	res := render.Annotation{Kind: annotationKind(sub.Subtype)}

	// annotations without a rect report an error here, the geometry stays empty
	if rect, err := inst.FPDFAnnot_GetRect(&requests.FPDFAnnot_GetRect{Annotation: ref}); err == nil {
		res.Rect = &render.Rect{
			Left: float64(rect.Rect.Left), Top: float64(rect.Rect.Top),
			Right: float64(rect.Rect.Right), Bottom: float64(rect.Rect.Bottom),
		}
	}

	text := func(key string) (*string, error) {
		has, err := inst.FPDFAnnot_HasKey(&requests.FPDFAnnot_HasKey{Annotation: ref, Key: key})
		if err != nil {
			return nil, fmt.Errorf("can't check annotation key %s: %w", key, err)
		}
		if !has.HasKey {
			return nil, nil
		}
		val, err := inst.FPDFAnnot_GetStringValue(&requests.FPDFAnnot_GetStringValue{Annotation: ref, Key: key})
		if err != nil {
			return nil, fmt.Errorf("can't read annotation key %s: %w", key, err)
		}
		return &val.Value, nil
	}
	fields := []struct {
		key string
		dst **string
	}{
		{keyName, &res.Name}, {keyContents, &res.Contents}, {keyCreator, &res.Creator},
		{keyCreated, &res.CreatedAt}, {keyModified, &res.ModifiedAt},
	}
	for _, f := range fields {
		if *f.dst, err = text(f.key); err != nil {
			return render.Annotation{}, err
		}
	}
	return res, nil
}

func annotationKind(t enums.FPDF_ANNOTATION_SUBTYPE) render.AnnotationKind {
	k := render.AnnotationKind(t)
	if k < render.AnnotUnknown || k > render.AnnotRedact {
		return render.AnnotUnknown
	}
	return k
}
