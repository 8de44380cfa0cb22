package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/engiverse/engiverse-backend/internal/ingest/archive"
	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
	"github.com/engiverse/engiverse-backend/internal/ingest/publisher"
	"github.com/engiverse/engiverse-backend/internal/ingest/source"
	projdomain "github.com/engiverse/engiverse-backend/internal/projects/domain"
)

const (
	maxTitleLen    = 80
	maxForkNameLen = 90
	suffixBytes    = 3
)

// SourceResolver resolves descriptors to project content.
type SourceResolver interface {
	FetchArchive(ctx context.Context, desc domain.SourceDescriptor) (*source.Resolved, error)
	CloneInto(ctx context.Context, url, dir string) error
}

// RepoPublisher materializes and forks repositories under the managed
// namespace.
type RepoPublisher interface {
	Publish(ctx context.Context, dir, repoName string) (string, error)
	Fork(ctx context.Context, fullName, newName string) (string, error)
}

// Analyzer invokes the external analysis service.
type Analyzer interface {
	Analyze(ctx context.Context, repoFullName string) (*domain.Report, error)
}

// ProjectStore is the persistence surface the orchestrator needs.
type ProjectStore interface {
	Create(ctx context.Context, p *projdomain.Project) (*projdomain.Project, error)
	GetByID(ctx context.Context, id int64) (*projdomain.Project, error)
	ApplyReport(ctx context.Context, projectID int64, report *domain.Report) (int64, error)
	CreateAdoption(ctx context.Context, a *projdomain.Adoption) (*projdomain.Adoption, error)
}

// Metadata is the caller-supplied description of a submission.
type Metadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Category         string   `json:"category,omitempty"`
	Languages        []string `json:"languages,omitempty"`
	ReasonHalted     string   `json:"reason_halted,omitempty"`
	DocumentationURL string   `json:"documentation,omitempty"`
	DemoURL          string   `json:"demo,omitempty"`
	ObjectKey        string   `json:"project_file_key,omitempty"`
	ObjectURL        string   `json:"project_file_url,omitempty"`
}

// Request is one ingestion submission.
type Request struct {
	UserID  int64
	Desc    domain.SourceDescriptor
	Meta    Metadata
	Analyze bool
}

// AnalysisOutcome is the typed result of the best-effort analysis step.
type AnalysisOutcome struct {
	Ran    bool
	Report *domain.Report
	Err    error
}

// Result is the response contract of a successful ingestion.
type Result struct {
	IngestionID  string         `json:"ingestion_id"`
	ProjectID    int64          `json:"project_id"`
	RepoFullName string         `json:"repo"`
	RepoURL      string         `json:"repo_url"`
	Analyzed     bool           `json:"analyzed"`
	Report       *domain.Report `json:"report,omitempty"`
	Meta         Metadata       `json:"metadata"`
}

// Orchestrator sequences resolution, extraction, publication, recording and
// the best-effort analysis step for each ingestion request.
type Orchestrator struct {
	resolver  SourceResolver
	publisher RepoPublisher
	analyzer  Analyzer
	projects  ProjectStore
	tracker   *StatusTracker
	tempDir   string
}

func NewOrchestrator(resolver SourceResolver, pub RepoPublisher, analyzer Analyzer,
	projects ProjectStore, tracker *StatusTracker, tempDir string) *Orchestrator {
	return &Orchestrator{
		resolver:  resolver,
		publisher: pub,
		analyzer:  analyzer,
		projects:  projects,
		tracker:   tracker,
		tempDir:   tempDir,
	}
}

// Ingest runs the full pipeline. Failures before the project record exists
// abort the operation; analysis failures after it are reported through
// Result.Analyzed only.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) (*Result, error) {
	st := &Status{ID: uuid.NewString(), Stage: StageResolving}
	o.tracker.Set(ctx, st)

	ws, err := archive.NewWorkspace(o.tempDir)
	if err != nil {
		return nil, o.fail(ctx, st, StageResolving, err)
	}
	defer ws.Cleanup()

	var objectKey string
	switch req.Desc.Kind {
	case domain.KindGitURL:
		if err := o.resolver.CloneInto(ctx, req.Desc.URL, ws.Dir()); err != nil {
			return nil, o.fail(ctx, st, StageResolving, err)
		}

	case domain.KindUpload, domain.KindObjectRef:
		resolved, err := o.resolver.FetchArchive(ctx, req.Desc)
		if err != nil {
			return nil, o.fail(ctx, st, StageResolving, err)
		}
		objectKey = resolved.ObjectKey

		st.Stage = StageExtracting
		o.tracker.Set(ctx, st)
		if err := archive.ExtractZip(resolved.Data, ws.Dir()); err != nil {
			return nil, o.fail(ctx, st, StageExtracting, err)
		}

	default:
		err := fmt.Errorf("%w: unsupported source kind %d", domain.ErrInternal, req.Desc.Kind)
		return nil, o.fail(ctx, st, StageResolving, err)
	}

	st.Stage = StagePublishing
	o.tracker.Set(ctx, st)

	// No cross-request coordination on names: suffix entropy keeps collisions
	// negligible.
	repoName := fmt.Sprintf("%d_%s", req.UserID, publisher.RandomSuffix(suffixBytes))
	fullName, err := o.publisher.Publish(ctx, ws.Dir(), repoName)
	if err != nil {
		return nil, o.fail(ctx, st, StagePublishing, err)
	}

	st.Stage = StageRecording
	st.Repo = fullName
	o.tracker.Set(ctx, st)

	meta := req.Meta
	if meta.Title == "" {
		meta.Title = repoName
	}
	meta.Title = truncate(meta.Title, maxTitleLen)
	if meta.ObjectKey == "" {
		meta.ObjectKey = objectKey
	}

	project, err := o.projects.Create(ctx, &projdomain.Project{
		OwnerUserID:      req.UserID,
		OriginalRepoURL:  originalURL(req.Desc),
		RepoFullName:     fullName,
		Title:            meta.Title,
		Description:      meta.Description,
		Category:         meta.Category,
		Languages:        meta.Languages,
		ReasonHalted:     meta.ReasonHalted,
		DocumentationURL: meta.DocumentationURL,
		DemoURL:          meta.DemoURL,
		S3ObjectKey:      meta.ObjectKey,
		S3ObjectURL:      meta.ObjectURL,
		SourceType:       req.Desc.SourceType(),
	})
	if err != nil {
		return nil, o.fail(ctx, st, StageRecording, fmt.Errorf("%w: %v", domain.ErrInternal, err))
	}

	var outcome AnalysisOutcome
	if req.Analyze {
		st.Stage = StageAnalyzing
		o.tracker.Set(ctx, st)
		outcome = o.analyze(ctx, project.ID, fullName)
	}

	st.Stage = StageDone
	st.Analyzed = outcome.Ran
	o.tracker.Set(ctx, st)

	return &Result{
		IngestionID:  st.ID,
		ProjectID:    project.ID,
		RepoFullName: fullName,
		RepoURL:      "https://github.com/" + fullName,
		Analyzed:     outcome.Ran,
		Report:       outcome.Report,
		Meta:         meta,
	}, nil
}

// analyze runs the post-commit analysis step. Its failure is captured in the
// outcome, never propagated.
func (o *Orchestrator) analyze(ctx context.Context, projectID int64, fullName string) AnalysisOutcome {
	report, err := o.analyzer.Analyze(ctx, fullName)
	if err != nil {
		log.Warn().Err(err).Str("repo", fullName).Msg("analysis failed")
		return AnalysisOutcome{Err: err}
	}

	if _, err := o.projects.ApplyReport(ctx, projectID, report); err != nil {
		log.Error().Err(err).Int64("project_id", projectID).Msg("failed to record analysis report")
		return AnalysisOutcome{Err: err}
	}

	return AnalysisOutcome{Ran: true, Report: report}
}

// AnalyzeProject re-runs analysis for an existing project. Unlike the
// ingestion-time step, failures here are returned to the caller.
func (o *Orchestrator) AnalyzeProject(ctx context.Context, projectID int64) (*domain.Report, error) {
	project, err := o.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	report, err := o.analyzer.Analyze(ctx, project.RepoFullName)
	if err != nil {
		return nil, err
	}

	if _, err := o.projects.ApplyReport(ctx, project.ID, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Adopt forks an existing project's repository for a new owner and records
// the adoption. The fork name is bounded by the provider limit; the truncated
// form is used consistently for the fork call and the stored record.
func (o *Orchestrator) Adopt(ctx context.Context, projectID, userID int64) (*projdomain.Adoption, error) {
	project, err := o.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	_, repoShort, ok := publisher.SplitFullName(project.RepoFullName)
	if !ok {
		return nil, fmt.Errorf("%w: project %d has malformed repository identifier %q",
			domain.ErrInternal, projectID, project.RepoFullName)
	}

	newName := truncate(fmt.Sprintf("%s_adopt_%d", repoShort, userID), maxForkNameLen)
	forkFullName, err := o.publisher.Fork(ctx, project.RepoFullName, newName)
	if err != nil {
		return nil, err
	}

	return o.projects.CreateAdoption(ctx, &projdomain.Adoption{
		ProjectID:     projectID,
		AdopterUserID: userID,
		ForkFullName:  forkFullName,
	})
}

// IngestionStatus reads the progress record of an ingestion.
func (o *Orchestrator) IngestionStatus(ctx context.Context, ingestionID string) (*Status, error) {
	return o.tracker.Get(ctx, ingestionID)
}

func (o *Orchestrator) fail(ctx context.Context, st *Status, stage string, err error) error {
	st.Stage = StageFailed
	st.FailedStage = stage
	st.Error = err.Error()
	o.tracker.Set(ctx, st)

	log.Error().Err(err).Str("ingestion_id", st.ID).Str("stage", stage).Msg("ingestion failed")
	return err
}

func originalURL(desc domain.SourceDescriptor) string {
	switch desc.Kind {
	case domain.KindGitURL:
		return desc.URL
	case domain.KindObjectRef:
		return desc.RawURL
	default:
		return ""
	}
}

// truncate bounds s to max runes. Byte slicing could cut a multibyte rune in
// half and produce invalid UTF-8 the database rejects.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
