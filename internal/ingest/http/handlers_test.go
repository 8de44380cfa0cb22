package http

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
	"github.com/engiverse/engiverse-backend/internal/ingest/service"
	"github.com/engiverse/engiverse-backend/internal/ingest/source"
	projdomain "github.com/engiverse/engiverse-backend/internal/projects/domain"
	"github.com/engiverse/engiverse-backend/internal/storage"
)

type fakeResolver struct {
	data     []byte
	fetchErr error
}

func (f *fakeResolver) FetchArchive(_ context.Context, _ domain.SourceDescriptor) (*source.Resolved, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &source.Resolved{Data: f.data}, nil
}

func (f *fakeResolver) CloneInto(_ context.Context, _, _ string) error { return nil }

type fakePublisher struct{}

func (fakePublisher) Publish(_ context.Context, _, repoName string) (string, error) {
	return "engiverse-bot/" + repoName, nil
}

func (fakePublisher) Fork(_ context.Context, _, newName string) (string, error) {
	return "engiverse-bot/" + newName, nil
}

type fakeAnalyzer struct {
	calls int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string) (*domain.Report, error) {
	f.calls++
	return &domain.Report{Summary: "ok"}, nil
}

type fakeStore struct {
	created *projdomain.Project
}

func (f *fakeStore) Create(_ context.Context, p *projdomain.Project) (*projdomain.Project, error) {
	f.created = p
	out := *p
	out.ID = 1
	return &out, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*projdomain.Project, error) {
	return &projdomain.Project{ID: id, RepoFullName: "engiverse-bot/7_abc"}, nil
}

func (f *fakeStore) ApplyReport(_ context.Context, _ int64, _ *domain.Report) (int64, error) {
	return 1, nil
}

func (f *fakeStore) CreateAdoption(_ context.Context, a *projdomain.Adoption) (*projdomain.Adoption, error) {
	out := *a
	out.ID = 1
	return &out, nil
}

func zipBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("README.md")
	require.NoError(t, err)
	_, err = w.Write([]byte("# hi"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type testEnv struct {
	router   *gin.Engine
	resolver *fakeResolver
	analyzer *fakeAnalyzer
	store    *fakeStore
}

func newTestEnv(t *testing.T, authenticated bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		resolver: &fakeResolver{data: zipBytes(t)},
		analyzer: &fakeAnalyzer{},
		store:    &fakeStore{},
	}

	orch := service.NewOrchestrator(env.resolver, fakePublisher{}, env.analyzer, env.store,
		service.NewStatusTracker(nil), t.TempDir())

	r := gin.New()
	if authenticated {
		r.Use(func(c *gin.Context) { c.Set("user_id", int64(42)) })
	}

	h := New(orch, &storage.ObjectStore{}, 99, 50)
	h.Register(r.Group("/api/projects"), r.Group("/api/ingestions"))

	env.router = r
	return env
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadS3(t *testing.T) {
	env := newTestEnv(t, true)

	w := doJSON(env.router, http.MethodPost, "/api/projects/upload/s3",
		`{"projectFileUrl":"https://b.s3.amazonaws.com/k.zip","title":"Halted Tool","languages":["go"],"reasonHalted":"no time"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ProjectID int64  `json:"project_id"`
		Repo      string `json:"repo"`
		Analyzed  bool   `json:"analyzed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ProjectID)
	assert.True(t, strings.HasPrefix(resp.Repo, "engiverse-bot/42_"))

	// Analysis defaults to on for object imports.
	assert.True(t, resp.Analyzed)
	assert.Equal(t, 1, env.analyzer.calls)

	require.NotNil(t, env.store.created)
	assert.Equal(t, "Halted Tool", env.store.created.Title)
	assert.Equal(t, []string{"go"}, env.store.created.Languages)
	assert.Equal(t, "no time", env.store.created.ReasonHalted)
	assert.Equal(t, "s3_zip", env.store.created.SourceType)
	assert.Equal(t, "https://b.s3.amazonaws.com/k.zip", env.store.created.S3ObjectURL)
}

func TestUploadS3_AnalyzeOptOut(t *testing.T) {
	env := newTestEnv(t, true)

	w := doJSON(env.router, http.MethodPost, "/api/projects/upload/s3",
		`{"projectFileUrl":"https://b.s3.amazonaws.com/k.zip","analyze":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.analyzer.calls)
}

func TestUploadS3_AnonymousFallback(t *testing.T) {
	env := newTestEnv(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/projects/upload/s3",
		`{"projectFileUrl":"https://b.s3.amazonaws.com/k.zip"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(99), env.store.created.OwnerUserID)
}

func TestUploadS3_Validation(t *testing.T) {
	env := newTestEnv(t, true)

	w := doJSON(env.router, http.MethodPost, "/api/projects/upload/s3", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(env.router, http.MethodPost, "/api/projects/upload/s3",
		`{"projectFileUrl":"https://b.s3.amazonaws.com/not-an-archive.tar.gz"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadS3_CredentialFailureMapsTo500(t *testing.T) {
	env := newTestEnv(t, true)
	env.resolver.fetchErr = domain.ErrCredentialsUnavailable

	w := doJSON(env.router, http.MethodPost, "/api/projects/upload/s3",
		`{"projectFileUrl":"https://b.s3.amazonaws.com/k.zip"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUploadGitURL(t *testing.T) {
	env := newTestEnv(t, true)

	w := doJSON(env.router, http.MethodPost, "/api/projects/upload/github",
		`{"url":"https://github.com/alice/old.git"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "git_url", env.store.created.SourceType)
	assert.Equal(t, "https://github.com/alice/old.git", env.store.created.OriginalRepoURL)
}

func TestUploadGitURL_MissingURL(t *testing.T) {
	env := newTestEnv(t, true)

	w := doJSON(env.router, http.MethodPost, "/api/projects/upload/github", `{"url":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadGitURL_Unauthenticated(t *testing.T) {
	env := newTestEnv(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/projects/upload/github",
		`{"url":"https://github.com/alice/old.git"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadZip(t *testing.T) {
	env := newTestEnv(t, true)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "my-project.zip")
	require.NoError(t, err)
	_, err = fw.Write(zipBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/projects/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "my-project", env.store.created.Title)
	assert.Equal(t, "zip_upload", env.store.created.SourceType)
}

func TestUploadZip_MissingFile(t *testing.T) {
	env := newTestEnv(t, true)

	w := doJSON(env.router, http.MethodPost, "/api/projects/upload", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdoptEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	w := doJSON(env.router, http.MethodPost, "/api/projects/5/adopt", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Fork string `json:"fork"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "engiverse-bot/7_abc_adopt_42", resp.Fork)
}

func TestAnalyzeEndpoint_InvalidID(t *testing.T) {
	env := newTestEnv(t, true)

	w := doJSON(env.router, http.MethodPost, "/api/projects/nope/analyze", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestionStatus_NotFound(t *testing.T) {
	env := newTestEnv(t, true)

	w := doJSON(env.router, http.MethodGet, "/api/ingestions/unknown-id", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
