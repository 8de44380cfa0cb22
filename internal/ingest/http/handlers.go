package http

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/engiverse/engiverse-backend/internal/auth"
	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
	"github.com/engiverse/engiverse-backend/internal/ingest/service"
)

var zipURLRe = regexp.MustCompile(`(?i)\.zip($|\?)`)

func (h *Handler) uploadZip(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `ZIP file required (field "file")`})
		return
	}
	if h.maxUpload > 0 && fileHeader.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	// Retain the original archive in the object store, best-effort.
	if h.objects.Enabled() {
		key := fmt.Sprintf("uploads/%d_%s", time.Now().Unix(), fileHeader.Filename)
		if err := h.objects.Put(c.Request.Context(), key, data, "application/zip"); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to retain uploaded archive")
		}
	}

	result, err := h.orch.Ingest(c.Request.Context(), service.Request{
		UserID: userID,
		Desc:   domain.NewUpload(data, fileHeader.Filename),
		Meta:   service.Metadata{Title: titleFromFilename(fileHeader.Filename)},
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) uploadGitURL(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req gitURLReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}

	result, err := h.orch.Ingest(c.Request.Context(), service.Request{
		UserID: userID,
		Desc:   domain.NewGitURL(strings.TrimSpace(req.URL)),
		Meta:   service.Metadata{Title: req.Title},
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) uploadS3(c *gin.Context) {
	// Auth optional: unauthenticated imports are attributed to the anonymous
	// user.
	userID, ok := auth.UserID(c)
	if !ok {
		userID = h.anonUserID
	}

	var req s3ImportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	s3URL := req.url()
	if s3URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectFileUrl required"})
		return
	}
	if !zipURLRe.MatchString(s3URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL must reference a .zip"})
		return
	}

	analyze := true
	if req.Analyze != nil {
		analyze = *req.Analyze
	}

	result, err := h.orch.Ingest(c.Request.Context(), service.Request{
		UserID: userID,
		Desc:   domain.NewObjectRef(s3URL),
		Meta: service.Metadata{
			Title:            req.Title,
			Description:      req.Description,
			Category:         req.Category,
			Languages:        req.languageList(),
			ReasonHalted:     req.ReasonHalted,
			DocumentationURL: req.documentationLink(),
			DemoURL:          req.demoLink(),
			ObjectKey:        req.ProjectFileKey,
			ObjectURL:        s3URL,
		},
		Analyze: analyze,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) analyze(c *gin.Context) {
	if _, ok := auth.UserID(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	report, err := h.orch.AnalyzeProject(c.Request.Context(), projectID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h *Handler) adopt(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	adoption, err := h.orch.Adopt(c.Request.Context(), projectID, userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adoptionId": adoption.ID, "fork": adoption.ForkFullName})
}

func (h *Handler) ingestionStatus(c *gin.Context) {
	st, err := h.orch.IngestionStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func respondErr(c *gin.Context, err error) {
	c.JSON(domain.StatusFor(err), gin.H{"error": err.Error()})
}

// titleFromFilename derives a default title from an uploaded archive name.
// Length bounding happens in the orchestrator along with caller-supplied
// titles.
func titleFromFilename(name string) string {
	title := strings.TrimSuffix(name, ".zip")
	return strings.TrimSuffix(title, ".ZIP")
}
