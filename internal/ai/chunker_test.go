package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkTextEmpty(t *testing.T) {
	require.Empty(t, ChunkText(""))
	require.Empty(t, ChunkText("   \n\n  "))
}

func TestChunkTextSingleParagraph(t *testing.T) {
	chunks := ChunkText("A single short paragraph about the sea.")
	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].Position)
	require.Contains(t, chunks[0].Content, "single short paragraph")
	require.Greater(t, chunks[0].TokenCount, 0)
}

func TestChunkTextHeadingPrefixesFollowingChunks(t *testing.T) {
	content := "# Chapter One\n\nThe fisherman woke before dawn.\n\n## The Storm\n\nClouds gathered over the bay."
	chunks := ChunkText(content)
	require.Len(t, chunks, 2)
	require.True(t, strings.HasPrefix(chunks[0].Content, "Heading: Chapter One\n"))
	require.True(t, strings.HasPrefix(chunks[1].Content, "Heading: The Storm\n"))
}

func TestChunkTextSplitsLongContent(t *testing.T) {
	paragraph := strings.Repeat("word ", 150)
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString(strings.TrimSpace(paragraph))
		sb.WriteString("\n\n")
	}
	chunks := ChunkText(sb.String())
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Position)
	}
}

func TestChunkTextOverlapCarriesTrailingParagraph(t *testing.T) {
	// Small paragraphs so the overlap window can hold at least one of them.
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString(strings.TrimSpace(strings.Repeat("tide ", 30)))
		sb.WriteString("\n\n")
	}
	chunks := ChunkText(sb.String())
	require.Greater(t, len(chunks), 1)
	// The tail of one chunk reappears at the head of the next.
	tail := chunks[0].Content[strings.LastIndex(chunks[0].Content, "\n\n")+2:]
	require.True(t, strings.HasPrefix(chunks[1].Content, tail))
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 3, estimateTokens("three small words"))
	require.Equal(t, 1, estimateTokens("x"))
	// CJK counts per rune on top of field count.
	require.Greater(t, estimateTokens("你好世界"), 3)
}
