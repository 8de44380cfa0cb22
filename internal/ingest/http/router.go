package http

import "github.com/gin-gonic/gin"

// Register attaches ingestion routes. The projects group carries the upload
// and per-project operations; the ingestions group exposes status records.
func (h *Handler) Register(projects, ingestions *gin.RouterGroup) {
	projects.POST("/upload", h.uploadZip)
	projects.POST("/upload/github", h.uploadGitURL)
	projects.POST("/upload/s3", h.uploadS3)
	projects.POST("/:id/analyze", h.analyze)
	projects.POST("/:id/adopt", h.adopt)

	ingestions.GET("/:id", h.ingestionStatus)
}
