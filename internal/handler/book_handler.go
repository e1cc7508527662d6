package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/viebook/viebook/internal/model"
	"github.com/viebook/viebook/internal/pkg/errcode"
	"github.com/viebook/viebook/internal/pkg/response"
	"github.com/viebook/viebook/internal/service"
)

type BookHandler struct {
	books *service.BookService
}

func NewBookHandler(books *service.BookService) *BookHandler {
	return &BookHandler{books: books}
}

type bookCreateRequest struct {
	Title          string `json:"title"`
	SubmitterClass string `json:"submitter_class"`
}

func (h *BookHandler) Create(c *gin.Context) {
	var req bookCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	submitter := model.SubmitterClass(req.SubmitterClass)
	if submitter == "" {
		submitter = model.SubmitterOwner
	}
	book, err := h.books.Create(c.Request.Context(), getUserID(c), req.Title, submitter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, book)
}

func (h *BookHandler) Get(c *gin.Context) {
	book, err := h.books.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, book)
}

func (h *BookHandler) List(c *gin.Context) {
	limit, offset := pageParams(c)
	books, err := h.books.ListByOwner(c.Request.Context(), getUserID(c), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, books)
}

func pageParams(c *gin.Context) (limit, offset uint) {
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = uint(parsed)
		}
	}
	if value := c.Query("offset"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			offset = uint(parsed)
		}
	}
	return limit, offset
}
