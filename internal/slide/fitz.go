package slide

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// FitzSlide serves the first page of a MuPDF-readable document. The page
// is rendered once at open time so that concurrent reads never touch the
// document handle.
type FitzSlide struct {
	*RasterSlide
	doc *fitz.Document
	dpi int
}

// NewFitzSlide opens path and renders its first page at dpi.
func NewFitzSlide(path string, dpi int) (*FitzSlide, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid dpi %d", dpi)
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, fmt.Errorf("%s has no pages", path)
	}

	img, err := doc.ImageDPI(0, float64(dpi))
	if err != nil {
		doc.Close()
		return nil, fmt.Errorf("render %s: %w", path, err)
	}
	return &FitzSlide{RasterSlide: FromImage(path, img), doc: doc, dpi: dpi}, nil
}

// Pages is the page count of the underlying document.
func (f *FitzSlide) Pages() int {
	return f.doc.NumPage()
}

func (f *FitzSlide) Close() error {
	return f.doc.Close()
}
