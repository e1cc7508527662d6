package extract

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

const basePDFRenderDPI = 72

type fitzEngine struct{}

// NewFitzEngine returns a PDFEngine backed by MuPDF, which handles both the
// text layer and page rasterization with one open document.
func NewFitzEngine() PDFEngine {
	return fitzEngine{}
}

func (fitzEngine) Open(data []byte) (PDFDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) PageCount() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) PageText(page int) (string, error) {
	return d.doc.Text(page)
}

func (d *fitzDocument) RenderPage(page int, scale float64) (image.Image, error) {
	return d.doc.ImageDPI(page, basePDFRenderDPI*scale)
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
