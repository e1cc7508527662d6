package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/viebook/viebook/internal/pipeline"
	"github.com/viebook/viebook/internal/pkg/errcode"
	"github.com/viebook/viebook/internal/pkg/response"
	"github.com/viebook/viebook/internal/service"
)

// maxDocumentBytes caps uploaded source documents at 50MB.
const maxDocumentBytes = 50 << 20

type PipelineHandler struct {
	pipeline *service.PipelineService
}

func NewPipelineHandler(pipeline *service.PipelineService) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline}
}

type sessionCreateRequest struct {
	BookID    string `json:"book_id"`
	ChapterID string `json:"chapter_id"`
}

func (h *PipelineHandler) CreateSession(c *gin.Context) {
	var req sessionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.BookID == "" {
		response.Error(c, errcode.ErrInvalid, "book_id required")
		return
	}
	session, err := h.pipeline.CreateSession(c.Request.Context(), getUserID(c), req.BookID, req.ChapterID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, session.Snapshot())
}

func (h *PipelineHandler) GetSession(c *gin.Context) {
	session, err := h.pipeline.GetSession(getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, session.Snapshot())
}

func (h *PipelineHandler) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size > maxDocumentBytes {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(io.LimitReader(opened, maxDocumentBytes+1))
	if err != nil || int64(len(data)) > maxDocumentBytes {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}
	view, err := h.pipeline.UploadDocument(c.Request.Context(), getUserID(c), c.Param("id"), file.Filename, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

type setTextRequest struct {
	Content string `json:"content"`
}

func (h *PipelineHandler) SetText(c *gin.Context) {
	var req setTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	view, err := h.pipeline.SetText(getUserID(c), c.Param("id"), req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *PipelineHandler) RunChecks(c *gin.Context) {
	view, err := h.pipeline.RunChecks(getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *PipelineHandler) Spelling(c *gin.Context) {
	result, err := h.pipeline.Spelling(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

type submitResponse struct {
	Submitted  bool                 `json:"submitted"`
	Violations []pipeline.Violation `json:"violations,omitempty"`
	Chapter    interface{}          `json:"chapter,omitempty"`
}

func (h *PipelineHandler) Submit(c *gin.Context) {
	var draft pipeline.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	violations, chapter, err := h.pipeline.Submit(c.Request.Context(), getUserID(c), c.Param("id"), draft)
	if err != nil {
		handleError(c, err)
		return
	}
	if len(violations) > 0 {
		response.Success(c, submitResponse{Submitted: false, Violations: violations})
		return
	}
	response.Success(c, submitResponse{Submitted: true, Chapter: chapter})
}
