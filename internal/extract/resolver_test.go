package extract

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/viebook/viebook/internal/pkg/errors"
)

type fakePDF struct {
	pages     []string
	textErr   error
	renderErr error
	closed    bool
}

func (f *fakePDF) PageCount() int { return len(f.pages) }

func (f *fakePDF) PageText(page int) (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.pages[page], nil
}

func (f *fakePDF) RenderPage(page int, scale float64) (image.Image, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (f *fakePDF) Close() error {
	f.closed = true
	return nil
}

type fakeEngine struct {
	doc     *fakePDF
	openErr error
}

func (f *fakeEngine) Open(data []byte) (PDFDocument, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.doc, nil
}

type fakeRecognizer struct {
	texts []string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image, progress func(float64)) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if progress != nil {
		progress(0)
		progress(1)
	}
	text := f.texts[f.calls%len(f.texts)]
	f.calls++
	return text, nil
}

// %PDF magic so DetectKind routes through the PDF path.
var pdfBytes = []byte("%PDF-1.4 fake")

func TestResolvePlainText(t *testing.T) {
	resolver := NewResolver(&fakeEngine{}, nil, ResolverConfig{})
	doc := NewUploadedDocument("notes.txt", []byte("plain chapter text"))

	result, err := resolver.Resolve(context.Background(), doc, nil)
	require.NoError(t, err)
	require.Equal(t, MethodDirectText, result.Method)
	require.Equal(t, "plain chapter text", result.Text)
}

func TestResolveUnsupportedFormat(t *testing.T) {
	resolver := NewResolver(&fakeEngine{}, nil, ResolverConfig{})
	doc := NewUploadedDocument("image.png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0})

	_, err := resolver.Resolve(context.Background(), doc, nil)
	require.ErrorIs(t, err, appErr.ErrUnsupportedFormat)
}

func TestResolvePDFWithTextLayer(t *testing.T) {
	pdf := &fakePDF{pages: []string{
		strings.Repeat("a", 60),
		"second page text",
		"third page text",
		"fourth page text",
	}}
	recognizer := &fakeRecognizer{texts: []string{"should not be used"}}
	resolver := NewResolver(&fakeEngine{doc: pdf}, recognizer, ResolverConfig{})

	result, err := resolver.Resolve(context.Background(), UploadedDocument{
		Filename: "book.pdf", Data: pdfBytes, Kind: KindPdf,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, MethodDirectText, result.Method)
	require.Equal(t, 4, result.Pages)
	require.Zero(t, recognizer.calls)
	// All pages concatenated in order, newline-joined.
	require.Equal(t, strings.Repeat("a", 60)+"\nsecond page text\nthird page text\nfourth page text", result.Text)
	require.True(t, pdf.closed)
}

func TestResolvePDFSampleSpreadAcrossPages(t *testing.T) {
	// No single page reaches the threshold but the first three together do.
	pdf := &fakePDF{pages: []string{
		strings.Repeat("x", 20),
		strings.Repeat("y", 20),
		strings.Repeat("z", 20),
	}}
	resolver := NewResolver(&fakeEngine{doc: pdf}, &fakeRecognizer{texts: []string{"ocr"}}, ResolverConfig{})

	result, err := resolver.Resolve(context.Background(), UploadedDocument{
		Filename: "book.pdf", Data: pdfBytes, Kind: KindPdf,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, MethodDirectText, result.Method)
}

func TestResolvePDFSparseTextLayerFallsBackToOCR(t *testing.T) {
	pdf := &fakePDF{pages: []string{"  ", "a b", ""}}
	recognizer := &fakeRecognizer{texts: []string{"trang mot", "trang hai", "trang ba"}}
	resolver := NewResolver(&fakeEngine{doc: pdf}, recognizer, ResolverConfig{})

	result, err := resolver.Resolve(context.Background(), UploadedDocument{
		Filename: "scan.pdf", Data: pdfBytes, Kind: KindPdf,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, MethodOCR, result.Method)
	require.Equal(t, 3, recognizer.calls)
	// OCR pages joined with a blank line.
	require.Equal(t, "trang mot\n\ntrang hai\n\ntrang ba", result.Text)
}

func TestResolvePDFShortDocumentSamplesAllPages(t *testing.T) {
	pdf := &fakePDF{pages: []string{strings.Repeat("a", 60)}}
	resolver := NewResolver(&fakeEngine{doc: pdf}, nil, ResolverConfig{SamplePages: 3})

	result, err := resolver.Resolve(context.Background(), UploadedDocument{
		Filename: "one-page.pdf", Data: pdfBytes, Kind: KindPdf,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, MethodDirectText, result.Method)
	require.Equal(t, 1, result.Pages)
}

func TestResolvePDFOCRProgressAdvances(t *testing.T) {
	pdf := &fakePDF{pages: []string{"", ""}}
	recognizer := &fakeRecognizer{texts: []string{"one", "two"}}
	resolver := NewResolver(&fakeEngine{doc: pdf}, recognizer, ResolverConfig{})

	var percents []float64
	_, err := resolver.Resolve(context.Background(), UploadedDocument{
		Filename: "scan.pdf", Data: pdfBytes, Kind: KindPdf,
	}, func(p Progress) {
		percents = append(percents, p.Percent)
	})
	require.NoError(t, err)
	require.NotEmpty(t, percents)
	// Page 2 starts at its base offset and the run ends at 100.
	require.Contains(t, percents, float64(50))
	require.Equal(t, float64(100), percents[len(percents)-1])
	for _, p := range percents {
		require.GreaterOrEqual(t, p, float64(0))
		require.LessOrEqual(t, p, float64(100))
	}
}

func TestResolvePDFOCRFailureAborts(t *testing.T) {
	pdf := &fakePDF{pages: []string{"", ""}}
	recognizer := &fakeRecognizer{err: errors.New("tesseract exploded")}
	resolver := NewResolver(&fakeEngine{doc: pdf}, recognizer, ResolverConfig{})

	_, err := resolver.Resolve(context.Background(), UploadedDocument{
		Filename: "scan.pdf", Data: pdfBytes, Kind: KindPdf,
	}, nil)
	require.ErrorIs(t, err, appErr.ErrExtractionFailed)
}

func TestResolvePDFNoRecognizerConfigured(t *testing.T) {
	pdf := &fakePDF{pages: []string{""}}
	resolver := NewResolver(&fakeEngine{doc: pdf}, nil, ResolverConfig{})

	_, err := resolver.Resolve(context.Background(), UploadedDocument{
		Filename: "scan.pdf", Data: pdfBytes, Kind: KindPdf,
	}, nil)
	require.ErrorIs(t, err, appErr.ErrOCREngine)
}

func TestResolvePDFOpenFailure(t *testing.T) {
	resolver := NewResolver(&fakeEngine{openErr: errors.New("corrupt")}, nil, ResolverConfig{})

	_, err := resolver.Resolve(context.Background(), UploadedDocument{
		Filename: "broken.pdf", Data: pdfBytes, Kind: KindPdf,
	}, nil)
	require.ErrorIs(t, err, appErr.ErrExtractionFailed)
}

func TestResolveCancelledContext(t *testing.T) {
	pdf := &fakePDF{pages: []string{strings.Repeat("a", 60), "more"}}
	resolver := NewResolver(&fakeEngine{doc: pdf}, nil, ResolverConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := resolver.Resolve(ctx, UploadedDocument{
		Filename: "book.pdf", Data: pdfBytes, Kind: KindPdf,
	}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDetectKind(t *testing.T) {
	require.Equal(t, KindPdf, DetectKind(pdfBytes))
	require.Equal(t, KindPlainText, DetectKind([]byte("hello world")))
	require.Equal(t, KindUnsupported, DetectKind([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0}))
}
