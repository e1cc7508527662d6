package extract

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/viebook/viebook/internal/pkg/errors"
)

// PDFDocument is one opened PDF. Pages are zero-based.
type PDFDocument interface {
	PageCount() int
	PageText(page int) (string, error)
	RenderPage(page int, scale float64) (image.Image, error)
	Close() error
}

type PDFEngine interface {
	Open(data []byte) (PDFDocument, error)
}

// Recognizer turns one rasterized page into text. Implementations report
// fractional progress (0.0-1.0) through the callback.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, progress func(float64)) (string, error)
}

type ResolverConfig struct {
	// SamplePages is how many leading pages are probed for a text layer.
	SamplePages int
	// MinTextLayerChars is the sampled-character threshold below which the
	// document is treated as image-only and routed through OCR.
	MinTextLayerChars int
	RenderScale       float64
}

// Resolver turns an uploaded document into a single plain-text string,
// preferring the PDF text layer and falling back to per-page OCR.
type Resolver struct {
	pdf PDFEngine
	ocr Recognizer
	cfg ResolverConfig
}

func NewResolver(pdf PDFEngine, ocr Recognizer, cfg ResolverConfig) *Resolver {
	if cfg.SamplePages <= 0 {
		cfg.SamplePages = 3
	}
	if cfg.MinTextLayerChars <= 0 {
		cfg.MinTextLayerChars = 50
	}
	if cfg.RenderScale <= 0 {
		cfg.RenderScale = 2.0
	}
	return &Resolver{pdf: pdf, ocr: ocr, cfg: cfg}
}

func (r *Resolver) Resolve(ctx context.Context, doc UploadedDocument, report ProgressFunc) (*ExtractionResult, error) {
	if report == nil {
		report = func(Progress) {}
	}
	switch doc.Kind {
	case KindPlainText:
		report(Progress{Status: "reading text file", Percent: 100})
		return &ExtractionResult{Text: string(doc.Data), Method: MethodDirectText}, nil
	case KindPdf:
		return r.resolvePDF(ctx, doc, report)
	default:
		return nil, appErr.ErrUnsupportedFormat
	}
}

func (r *Resolver) resolvePDF(ctx context.Context, doc UploadedDocument, report ProgressFunc) (*ExtractionResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("file", doc.Filename))
	pdfDoc, err := r.pdf.Open(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", appErr.ErrExtractionFailed, err)
	}
	defer pdfDoc.Close()

	total := pdfDoc.PageCount()
	if total == 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", appErr.ErrExtractionFailed)
	}

	report(Progress{Status: "reading text layer", Percent: 0})
	sampled, err := r.sampleTextLayer(pdfDoc, total)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrExtractionFailed, err)
	}
	if sampled >= r.cfg.MinTextLayerChars {
		logger.Info("pdf has usable text layer", zap.Int("sampled_chars", sampled), zap.Int("pages", total))
		return r.extractDirect(ctx, pdfDoc, total, report)
	}

	logger.Info("pdf text layer too sparse, switching to ocr",
		zap.Int("sampled_chars", sampled), zap.Int("pages", total))
	return r.extractOCR(ctx, pdfDoc, total, report)
}

func (r *Resolver) sampleTextLayer(doc PDFDocument, total int) (int, error) {
	pages := r.cfg.SamplePages
	if total < pages {
		pages = total
	}
	chars := 0
	for i := 0; i < pages; i++ {
		text, err := doc.PageText(i)
		if err != nil {
			return 0, fmt.Errorf("sample page %d: %w", i+1, err)
		}
		chars += len(strings.TrimSpace(text))
	}
	return chars, nil
}

func (r *Resolver) extractDirect(ctx context.Context, doc PDFDocument, total int, report ProgressFunc) (*ExtractionResult, error) {
	parts := make([]string, 0, total)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.PageText(i)
		if err != nil {
			return nil, fmt.Errorf("%w: read page %d: %v", appErr.ErrExtractionFailed, i+1, err)
		}
		parts = append(parts, text)
		report(Progress{
			Status:  fmt.Sprintf("reading text layer %d/%d", i+1, total),
			Percent: float64(i+1) / float64(total) * 100,
		})
	}
	return &ExtractionResult{
		Text:   strings.TrimSpace(strings.Join(parts, "\n")),
		Method: MethodDirectText,
		Pages:  total,
	}, nil
}

func (r *Resolver) extractOCR(ctx context.Context, doc PDFDocument, total int, report ProgressFunc) (*ExtractionResult, error) {
	if r.ocr == nil {
		return nil, fmt.Errorf("%w: no recognizer configured", appErr.ErrOCREngine)
	}
	report(Progress{Status: "initializing OCR", Percent: 0})
	parts := make([]string, 0, total)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := i
		base := float64(page) / float64(total) * 100
		report(Progress{
			Status:  fmt.Sprintf("OCR page %d/%d", page+1, total),
			Percent: base,
		})
		img, err := doc.RenderPage(page, r.cfg.RenderScale)
		if err != nil {
			return nil, fmt.Errorf("%w: render page %d: %v", appErr.ErrExtractionFailed, page+1, err)
		}
		text, err := r.ocr.Recognize(ctx, img, func(frac float64) {
			report(Progress{
				Status:  fmt.Sprintf("OCR page %d/%d", page+1, total),
				Percent: base + frac*100/float64(total),
			})
		})
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", appErr.ErrExtractionFailed, page+1, err)
		}
		parts = append(parts, strings.TrimSpace(text))
	}
	report(Progress{Status: "OCR done", Percent: 100})
	return &ExtractionResult{
		Text:   strings.TrimSpace(strings.Join(parts, "\n\n")),
		Method: MethodOCR,
		Pages:  total,
	}, nil
}
