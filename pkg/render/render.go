// Package render defines the boundary to the document rendering library.
// Tables talk only to these interfaces; pdfium and memory subpackages implement them.
package render

import (
	"errors"
	"image"
	"math"
)

//go:generate moq -out mocks/engine.go -pkg mocks -skip-ensure -fmt goimports . Engine
//go:generate moq -out mocks/document.go -pkg mocks -skip-ensure -fmt goimports . Document
//go:generate moq -out mocks/page.go -pkg mocks -skip-ensure -fmt goimports . Page

// ErrMalformed is wrapped by Engine.Open when data can't be parsed as a document.
var ErrMalformed = errors.New("malformed document")

// Engine parses documents. Implementations are shared by all tables of a connection
// and must be safe for concurrent Open calls.
type Engine interface {
	Open(data []byte) (Document, error)
	Close() error
}

// Document is one parsed byte stream.
type Document interface {
	PageCount() (int, error)
	Page(index int) (Page, error)
	Close() error
}

// Page is a loaded page of a document. Label returns ok=false for pages without a label.
type Page interface {
	Size() (width, height float64, err error)
	Label() (label string, ok bool, err error)
	Text() (string, error)
	Objects() (Iterator[Object], error)
	Annotations() (Iterator[Annotation], error)
	Render(width, height int) (image.Image, error)
	Close() error
}

// Rect is a box in page space, origin at bottom left.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// Width of the box.
func (r Rect) Width() float64 { return math.Abs(r.Right - r.Left) }

// Height of the box.
func (r Rect) Height() float64 { return math.Abs(r.Top - r.Bottom) }

// ObjectKind is the type of a drawable page object.
type ObjectKind int

// object kinds, values follow pdfium FPDF_PAGEOBJ_* constants
const (
	ObjectUnknown ObjectKind = iota
	ObjectText
	ObjectPath
	ObjectImage
	ObjectShading
	ObjectForm
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectText:
		return "text"
	case ObjectPath:
		return "path"
	case ObjectImage:
		return "image"
	case ObjectShading:
		return "shading"
	case ObjectForm:
		return "form"
	default:
		return "unknown"
	}
}

// Object is any drawable object of a page.
type Object interface {
	Kind() ObjectKind
	Bounds() (Rect, error)
}

// ImageObject is the raster image variant of Object.
type ImageObject interface {
	Object
	// Image renders the object into a fully composited pixel buffer.
	Image() (image.Image, error)
}

// AnnotationKind is the annotation subtype, values follow pdfium FPDF_ANNOT_SUBTYPE_* constants.
type AnnotationKind int

// annotation subtypes
const (
	AnnotUnknown AnnotationKind = iota
	AnnotText
	AnnotLink
	AnnotFreeText
	AnnotLine
	AnnotSquare
	AnnotCircle
	AnnotPolygon
	AnnotPolyline
	AnnotHighlight
	AnnotUnderline
	AnnotSquiggly
	AnnotStrikeout
	AnnotStamp
	AnnotCaret
	AnnotInk
	AnnotPopup
	AnnotFileAttachment
	AnnotSound
	AnnotMovie
	AnnotWidget
	AnnotScreen
	AnnotPrinterMark
	AnnotTrapNet
	AnnotWatermark
	AnnotThreeD
	AnnotRichMedia
	AnnotXFAWidget
	AnnotRedact
)

// Annotation is a snapshot of one page annotation. Nil fields are not defined for it.
type Annotation struct {
	Kind       AnnotationKind
	Rect       *Rect
	Name       *string
	Contents   *string
	Creator    *string
	CreatedAt  *string
	ModifiedAt *string
}
