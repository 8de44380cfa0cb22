package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
)

const (
	statusKeyPrefix = "ingest:status:" // ingest:status:{ingestion_id}
	statusTTL       = 24 * time.Hour
)

// Pipeline stages, in order. Failed records which stage broke.
const (
	StageResolving  = "resolving"
	StageExtracting = "extracting"
	StagePublishing = "publishing"
	StageRecording  = "recording"
	StageAnalyzing  = "analyzing"
	StageDone       = "done"
	StageFailed     = "failed"
)

// Status is the externally visible progress record of one ingestion.
type Status struct {
	ID          string    `json:"id"`
	Stage       string    `json:"stage"`
	FailedStage string    `json:"failed_stage,omitempty"`
	Repo        string    `json:"repo,omitempty"`
	Analyzed    bool      `json:"analyzed"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusTracker persists per-ingestion status records in Redis with a TTL.
// Tracking is best-effort: a nil client disables it and write failures are
// only logged, never allowed to fail an ingestion.
type StatusTracker struct {
	client *redis.Client
}

func NewStatusTracker(client *redis.Client) *StatusTracker {
	return &StatusTracker{client: client}
}

func (t *StatusTracker) Enabled() bool {
	return t != nil && t.client != nil
}

func (t *StatusTracker) Set(ctx context.Context, st *Status) {
	if !t.Enabled() {
		return
	}
	st.UpdatedAt = time.Now()

	data, err := json.Marshal(st)
	if err != nil {
		log.Error().Err(err).Str("ingestion_id", st.ID).Msg("marshal ingestion status")
		return
	}
	if err := t.client.Set(ctx, statusKeyPrefix+st.ID, data, statusTTL).Err(); err != nil {
		log.Warn().Err(err).Str("ingestion_id", st.ID).Msg("write ingestion status")
	}
}

func (t *StatusTracker) Get(ctx context.Context, ingestionID string) (*Status, error) {
	if !t.Enabled() {
		return nil, fmt.Errorf("%w: status tracking disabled", domain.ErrNotFound)
	}

	data, err := t.client.Get(ctx, statusKeyPrefix+ingestionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: ingestion %s", domain.ErrNotFound, ingestionID)
		}
		return nil, fmt.Errorf("read ingestion status: %w", err)
	}

	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal ingestion status: %w", err)
	}
	return &st, nil
}
