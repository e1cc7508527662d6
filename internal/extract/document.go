package extract

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Kind int

const (
	KindUnsupported Kind = iota
	KindPlainText
	KindPdf
)

func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "plain_text"
	case KindPdf:
		return "pdf"
	default:
		return "unsupported"
	}
}

// UploadedDocument is the author-selected file before any processing.
type UploadedDocument struct {
	Filename string
	Data     []byte
	Kind     Kind
}

// NewUploadedDocument sniffs the content kind from the bytes themselves;
// the declared filename extension is not trusted.
func NewUploadedDocument(filename string, data []byte) UploadedDocument {
	return UploadedDocument{
		Filename: filename,
		Data:     data,
		Kind:     DetectKind(data),
	}
}

func DetectKind(data []byte) Kind {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("application/pdf"):
		return KindPdf
	case strings.HasPrefix(mtype.String(), "text/"):
		return KindPlainText
	default:
		return KindUnsupported
	}
}

type Method string

const (
	MethodDirectText Method = "direct_text"
	MethodOCR        Method = "ocr"
)

// ExtractionResult is the resolver output: one plain-text string plus how it
// was obtained.
type ExtractionResult struct {
	Text   string `json:"text"`
	Method Method `json:"method"`
	Pages  int    `json:"pages"`
}

// Progress carries a human-readable status and a 0-100 percent value. It is
// display-only and never feeds back into extraction decisions.
type Progress struct {
	Status  string  `json:"status"`
	Percent float64 `json:"percent"`
}

type ProgressFunc func(Progress)
