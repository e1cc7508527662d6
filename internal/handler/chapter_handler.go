package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/viebook/viebook/internal/pkg/response"
	"github.com/viebook/viebook/internal/service"
)

type ChapterHandler struct {
	chapters *service.ChapterService
}

func NewChapterHandler(chapters *service.ChapterService) *ChapterHandler {
	return &ChapterHandler{chapters: chapters}
}

func (h *ChapterHandler) Get(c *gin.Context) {
	chapter, err := h.chapters.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, chapter)
}

func (h *ChapterHandler) ListByBook(c *gin.Context) {
	limit, offset := pageParams(c)
	chapters, err := h.chapters.ListByBook(c.Request.Context(), getUserID(c), c.Param("id"), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, chapters)
}

type previewResponse struct {
	ChapterID string `json:"chapter_id"`
	HTML      string `json:"html"`
}

func (h *ChapterHandler) Preview(c *gin.Context) {
	chapterID := c.Param("id")
	html, err := h.chapters.PreviewHTML(c.Request.Context(), getUserID(c), chapterID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, previewResponse{ChapterID: chapterID, HTML: html})
}
