package http

import (
	"github.com/engiverse/engiverse-backend/internal/ingest/service"
	"github.com/engiverse/engiverse-backend/internal/storage"
)

// Handler bundles the dependencies for ingestion HTTP endpoints.
type Handler struct {
	orch       *service.Orchestrator
	objects    *storage.ObjectStore
	anonUserID int64
	maxUpload  int64 // bytes
}

func New(orch *service.Orchestrator, objects *storage.ObjectStore, anonUserID int64, maxUploadMB int) *Handler {
	return &Handler{
		orch:       orch,
		objects:    objects,
		anonUserID: anonUserID,
		maxUpload:  int64(maxUploadMB) << 20,
	}
}

type gitURLReq struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// s3ImportReq mirrors the submit-by-object-reference body. Languages accepts
// either a list or a single value; Analyze defaults to true when omitted.
type s3ImportReq struct {
	ProjectFileURL string `json:"projectFileUrl"`
	S3URL          string `json:"s3Url"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	Languages      any    `json:"languages"`
	ReasonHalted   string `json:"reasonHalted"`
	Documentation  string `json:"documentation"`
	DocumentationURL string `json:"documentationUrl"`
	Demo           string `json:"demo"`
	DemoURL        string `json:"demoUrl"`
	ProjectFileKey string `json:"projectFileKey"`
	Analyze        *bool  `json:"analyze"`
}

func (r *s3ImportReq) url() string {
	if r.ProjectFileURL != "" {
		return r.ProjectFileURL
	}
	return r.S3URL
}

func (r *s3ImportReq) documentationLink() string {
	if r.Documentation != "" {
		return r.Documentation
	}
	return r.DocumentationURL
}

func (r *s3ImportReq) demoLink() string {
	if r.Demo != "" {
		return r.Demo
	}
	return r.DemoURL
}

func (r *s3ImportReq) languageList() []string {
	switch v := r.Languages.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
