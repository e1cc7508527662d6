package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/viebook/viebook/internal/middleware"
)

type RouterDeps struct {
	Books     *BookHandler
	Chapters  *ChapterHandler
	Pipeline  *PipelineHandler
	Files     *FileHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/books", deps.Books.Create)
	authGroup.GET("/books", deps.Books.List)
	authGroup.GET("/books/:id", deps.Books.Get)
	authGroup.GET("/books/:id/chapters", deps.Chapters.ListByBook)

	authGroup.GET("/chapters/:id", deps.Chapters.Get)
	authGroup.GET("/chapters/:id/preview", deps.Chapters.Preview)

	authGroup.POST("/sessions", deps.Pipeline.CreateSession)
	authGroup.GET("/sessions/:id", deps.Pipeline.GetSession)
	authGroup.PUT("/sessions/:id/content", deps.Pipeline.SetText)
	authGroup.POST("/sessions/:id/spelling", deps.Pipeline.Spelling)
	authGroup.POST("/sessions/:id/submit", deps.Pipeline.Submit)

	// The expensive endpoints get a per-user cooldown on top of auth.
	limited := authGroup.Group("")
	limited.Use(middleware.RateLimit(2 * time.Second))
	limited.POST("/sessions/:id/document", deps.Pipeline.UploadDocument)
	limited.POST("/sessions/:id/checks", deps.Pipeline.RunChecks)

	if deps.Files != nil {
		api.GET("/files/:key", deps.Files.Get)
	}
}
