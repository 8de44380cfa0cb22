package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	ingestdomain "github.com/engiverse/engiverse-backend/internal/ingest/domain"
	"github.com/engiverse/engiverse-backend/internal/projects/domain"
)

// DB is the subset of pgxpool.Pool the repository uses. Tests substitute a
// mock pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repo provides persistence for projects, their analysis history and
// adoptions.
type Repo struct {
	db DB
}

func NewRepo(db DB) *Repo {
	return &Repo{db: db}
}

// Create inserts the project record produced at the durability checkpoint.
func (r *Repo) Create(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	if p.RepoFullName == "" {
		return nil, fmt.Errorf("repo full name required")
	}
	if p.OwnerUserID == 0 {
		return nil, fmt.Errorf("owner user id required")
	}

	const q = `
insert into projects (
    owner_user_id, original_repo_url, bot_repo_full_name, title, description,
    category, languages, reason_halted, documentation_url, demo_url,
    s3_object_key, s3_object_url, source_type
)
values ($1, nullif($2,''), $3, $4, nullif($5,''), nullif($6,''), $7,
        nullif($8,''), nullif($9,''), nullif($10,''), nullif($11,''),
        nullif($12,''), $13)
returning id, created_at;
`
	err := r.db.QueryRow(ctx, q,
		p.OwnerUserID, p.OriginalRepoURL, p.RepoFullName, p.Title, p.Description,
		p.Category, p.Languages, p.ReasonHalted, p.DocumentationURL, p.DemoURL,
		p.S3ObjectKey, p.S3ObjectURL, p.SourceType,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

const projectColumns = `
id, owner_user_id, coalesce(original_repo_url,''), bot_repo_full_name, title,
coalesce(description,''), coalesce(category,''), coalesce(languages,'{}'),
coalesce(reason_halted,''), coalesce(documentation_url,''), coalesce(demo_url,''),
coalesce(s3_object_key,''), coalesce(s3_object_url,''), coalesce(source_type,''),
coalesce(ai_summary,''), ai_health, ai_next_steps, ai_last_generated_at,
coalesce(keywords,'{}'), created_at`

func (r *Repo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	q := `select ` + projectColumns + ` from projects where id = $1;`

	var p domain.Project
	err := r.db.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.OwnerUserID, &p.OriginalRepoURL, &p.RepoFullName, &p.Title,
		&p.Description, &p.Category, &p.Languages,
		&p.ReasonHalted, &p.DocumentationURL, &p.DemoURL,
		&p.S3ObjectKey, &p.S3ObjectURL, &p.SourceType,
		&p.AISummary, &p.AIHealth, &p.AINextSteps, &p.AILastGeneratedAt,
		&p.Keywords, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: project %d", ingestdomain.ErrNotFound, id)
		}
		return nil, err
	}
	return &p, nil
}

// List returns the listing projection, newest first.
func (r *Repo) List(ctx context.Context) ([]domain.Summary, error) {
	const q = `
select id, title, coalesce(description,''), bot_repo_full_name,
       coalesce(ai_summary,''), coalesce(keywords,'{}'), created_at
from projects
order by id desc;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Summary, 0, 16)
	for rows.Next() {
		var s domain.Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.RepoFullName,
			&s.AISummary, &s.Keywords, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ApplyReport updates the project's denormalized AI fields and appends the
// immutable report row in one transaction, so the projection can never
// reflect a report that was not recorded (or the other way around).
func (r *Repo) ApplyReport(ctx context.Context, projectID int64, report *ingestdomain.Report) (int64, error) {
	healthJSON, err := marshalOrNil(report.Health)
	if err != nil {
		return 0, fmt.Errorf("marshal health: %w", err)
	}
	nextStepsJSON, err := marshalOrNil(report.NextSteps)
	if err != nil {
		return 0, fmt.Errorf("marshal next steps: %w", err)
	}
	rawJSON, err := json.Marshal(report.Raw)
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const updateQ = `
update projects
set ai_summary = $2, ai_health = $3, ai_next_steps = $4,
    ai_last_generated_at = now(), keywords = $5
where id = $1;
`
	ct, err := tx.Exec(ctx, updateQ, projectID, report.Summary, healthJSON, nextStepsJSON, report.Keywords)
	if err != nil {
		return 0, fmt.Errorf("update ai fields: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return 0, fmt.Errorf("%w: project %d", ingestdomain.ErrNotFound, projectID)
	}

	const insertQ = `
insert into ai_reports (project_id, report)
values ($1, $2)
returning id;
`
	var reportID int64
	if err := tx.QueryRow(ctx, insertQ, projectID, rawJSON).Scan(&reportID); err != nil {
		return 0, fmt.Errorf("insert ai report: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return reportID, nil
}

// ListStaleIDs returns projects whose last report predates cutoff (or that
// never had one), oldest first.
func (r *Repo) ListStaleIDs(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	const q = `
select id from projects
where ai_last_generated_at is null or ai_last_generated_at < $1
order by ai_last_generated_at asc nulls first
limit $2;
`
	rows, err := r.db.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateAdoption records a fork relationship.
func (r *Repo) CreateAdoption(ctx context.Context, a *domain.Adoption) (*domain.Adoption, error) {
	const q = `
insert into adoptions (project_id, adopter_user_id, fork_full_name)
values ($1, $2, $3)
returning id, created_at;
`
	err := r.db.QueryRow(ctx, q, a.ProjectID, a.AdopterUserID, a.ForkFullName).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert adoption: %w", err)
	}
	return a, nil
}

func marshalOrNil(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
