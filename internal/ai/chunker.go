package ai

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	chunkTargetTokens  = 400
	chunkOverlapTokens = 80
)

// Chunk is one embeddable slice of chapter text.
type Chunk struct {
	Content    string
	TokenCount int
	Position   int
}

// ChunkText splits chapter content into overlapping prose chunks along the
// markdown block structure. Headings flush the current chunk and prefix the
// next ones so matches retain section context.
func ChunkText(content string) []Chunk {
	md := goldmark.New()
	reader := text.NewReader([]byte(content))
	doc := md.Parser().Parse(reader)

	var chunks []Chunk
	var current []string
	var currentTokens int
	var currentHeading string
	position := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		body := strings.Join(current, "\n\n")
		if currentHeading != "" {
			body = "Heading: " + currentHeading + "\n" + body
		}
		chunks = append(chunks, Chunk{
			Content:    body,
			TokenCount: estimateTokens(body),
			Position:   position,
		})
		position++

		if len(current) > 1 {
			overlapTokens := 0
			var overlap []string
			for i := len(current) - 1; i >= 0; i-- {
				t := estimateTokens(current[i])
				if overlapTokens+t > chunkOverlapTokens {
					break
				}
				overlapTokens += t
				overlap = append([]string{current[i]}, overlap...)
			}
			current = overlap
			currentTokens = overlapTokens
		} else {
			current = nil
			currentTokens = 0
		}
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok && heading.Level <= 2 {
			flush()
			current = nil
			currentTokens = 0
			currentHeading = string(heading.Text(reader.Source()))
			continue
		}
		txt := blockText(node, reader.Source())
		if txt == "" {
			continue
		}
		tokens := estimateTokens(txt)
		if currentTokens+tokens > chunkTargetTokens {
			flush()
		}
		current = append(current, txt)
		currentTokens += tokens
	}
	flush()
	return chunks
}

// estimateTokens approximates token count: words for Latin script, one token
// per rune for everything else (Vietnamese prose stays Latin, CJK does not).
func estimateTokens(text string) int {
	count := 0
	for _, r := range text {
		if r > 0x2e80 {
			count++
		}
	}
	count += len(strings.Fields(text))
	if count == 0 && len(text) > 0 {
		return 1
	}
	return count
}

func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
