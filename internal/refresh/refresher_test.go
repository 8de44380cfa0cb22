package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
	"github.com/engiverse/engiverse-backend/internal/ingest/service"
	"github.com/engiverse/engiverse-backend/internal/ingest/source"
	projdomain "github.com/engiverse/engiverse-backend/internal/projects/domain"
)

type fakeSource struct {
	ids       []int64
	gotCutoff time.Time
	gotLimit  int
}

func (f *fakeSource) ListStaleIDs(_ context.Context, cutoff time.Time, limit int) ([]int64, error) {
	f.gotCutoff = cutoff
	f.gotLimit = limit
	return f.ids, nil
}

type fakeAnalyzer struct {
	calls []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, repoFullName string) (*domain.Report, error) {
	f.calls = append(f.calls, repoFullName)
	return &domain.Report{Summary: "refreshed"}, nil
}

type fakeStore struct {
	applyErrFor map[int64]error
	applied     []int64
}

func (f *fakeStore) Create(_ context.Context, p *projdomain.Project) (*projdomain.Project, error) {
	return p, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*projdomain.Project, error) {
	return &projdomain.Project{ID: id, RepoFullName: "engiverse-bot/7_abc"}, nil
}

func (f *fakeStore) ApplyReport(_ context.Context, projectID int64, _ *domain.Report) (int64, error) {
	if err := f.applyErrFor[projectID]; err != nil {
		return 0, err
	}
	f.applied = append(f.applied, projectID)
	return 1, nil
}

func (f *fakeStore) CreateAdoption(_ context.Context, a *projdomain.Adoption) (*projdomain.Adoption, error) {
	return a, nil
}

type noopResolver struct{}

func (noopResolver) FetchArchive(_ context.Context, _ domain.SourceDescriptor) (*source.Resolved, error) {
	return &source.Resolved{}, nil
}

func (noopResolver) CloneInto(_ context.Context, _, _ string) error { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, _, repoName string) (string, error) {
	return "engiverse-bot/" + repoName, nil
}

func (noopPublisher) Fork(_ context.Context, _, newName string) (string, error) {
	return "engiverse-bot/" + newName, nil
}

func TestRunOnce(t *testing.T) {
	store := &fakeStore{}
	analyzer := &fakeAnalyzer{}
	orch := service.NewOrchestrator(noopResolver{}, noopPublisher{}, analyzer, store,
		service.NewStatusTracker(nil), t.TempDir())

	src := &fakeSource{ids: []int64{1, 2, 3}}
	r := New(src, orch, 30*24*time.Hour, 1000)

	r.RunOnce(context.Background())

	assert.Equal(t, staleBatchLimit, src.gotLimit)
	assert.WithinDuration(t, time.Now().Add(-30*24*time.Hour), src.gotCutoff, time.Minute)
	assert.Equal(t, []int64{1, 2, 3}, store.applied)
	assert.Len(t, analyzer.calls, 3)
}

func TestRunOnce_ContinuesPastFailures(t *testing.T) {
	store := &fakeStore{applyErrFor: map[int64]error{2: domain.ErrInternal}}
	orch := service.NewOrchestrator(noopResolver{}, noopPublisher{}, &fakeAnalyzer{}, store,
		service.NewStatusTracker(nil), t.TempDir())

	r := New(&fakeSource{ids: []int64{1, 2, 3}}, orch, time.Hour, 1000)
	r.RunOnce(context.Background())

	// The failing project is skipped, the rest still refresh.
	assert.Equal(t, []int64{1, 3}, store.applied)
}

func TestStartStop(t *testing.T) {
	orch := service.NewOrchestrator(noopResolver{}, noopPublisher{}, &fakeAnalyzer{}, &fakeStore{},
		service.NewStatusTracker(nil), t.TempDir())

	r := New(&fakeSource{}, orch, time.Hour, 1)
	require.NoError(t, r.Start())
	r.Stop()
}
