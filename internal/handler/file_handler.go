package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/viebook/viebook/internal/filestore"
)

// FileHandler serves stored source documents when the local file store is in
// use. With S3 the store's public URL serves files directly and this handler
// is not registered.
type FileHandler struct {
	store     filestore.Store
	storeType string
}

func NewFileHandler(store filestore.Store, storeType string) *FileHandler {
	return &FileHandler{store: store, storeType: storeType}
}

func (h *FileHandler) Get(c *gin.Context) {
	if h.storeType != "local" {
		c.Status(http.StatusNotFound)
		return
	}
	key := c.Param("key")
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "\\") {
		c.Status(http.StatusBadRequest)
		return
	}
	file, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	_, _ = io.Copy(c.Writer, file)
}
