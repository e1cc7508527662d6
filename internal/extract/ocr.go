package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	appErr "github.com/viebook/viebook/internal/pkg/errors"
)

// TesseractRecognizer wraps a single gosseract client. The engine is not safe
// for concurrent recognition on one instance, so the client is built lazily on
// first use and every call holds the mutex for its full duration.
type TesseractRecognizer struct {
	mu          sync.Mutex
	client      *gosseract.Client
	languages   []string
	tessdataDir string
}

func NewTesseractRecognizer(languages []string, tessdataDir string) *TesseractRecognizer {
	if len(languages) == 0 {
		languages = []string{"vie", "eng"}
	}
	return &TesseractRecognizer{
		languages:   languages,
		tessdataDir: tessdataDir,
	}
}

func (r *TesseractRecognizer) Recognize(ctx context.Context, img image.Image, progress func(float64)) (string, error) {
	if progress == nil {
		progress = func(float64) {}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: encode page image: %v", appErr.ErrOCREngine, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.initLocked(); err != nil {
		return "", err
	}

	progress(0)
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("%w: set image: %v", appErr.ErrOCREngine, err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: recognize: %v", appErr.ErrOCREngine, err)
	}
	progress(1)
	return text, nil
}

func (r *TesseractRecognizer) initLocked() error {
	if r.client != nil {
		return nil
	}
	client := gosseract.NewClient()
	if r.tessdataDir != "" {
		if err := client.SetTessdataPrefix(r.tessdataDir); err != nil {
			_ = client.Close()
			return fmt.Errorf("%w: tessdata prefix: %v", appErr.ErrOCREngine, err)
		}
	}
	if err := client.SetLanguage(r.languages...); err != nil {
		_ = client.Close()
		return fmt.Errorf("%w: set language %s: %v", appErr.ErrOCREngine, strings.Join(r.languages, "+"), err)
	}
	r.client = client
	return nil
}

func (r *TesseractRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
