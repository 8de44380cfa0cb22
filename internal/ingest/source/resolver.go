package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
)

// ObjectFetcher performs authenticated object store reads. Enabled reports
// whether credentials were configured at startup.
type ObjectFetcher interface {
	Enabled() bool
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// Cloner clones a remote repository into dir.
type Cloner interface {
	Clone(ctx context.Context, url, dir string) error
}

// Resolved describes where the project bytes came from, for record keeping.
type Resolved struct {
	Data      []byte
	ObjectKey string
}

// Resolver turns a SourceDescriptor into project file content.
type Resolver struct {
	objects ObjectFetcher
	git     Cloner
	httpc   *http.Client
}

func NewResolver(objects ObjectFetcher, git Cloner, httpc *http.Client) *Resolver {
	if httpc == nil {
		httpc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Resolver{objects: objects, git: git, httpc: httpc}
}

// FetchArchive resolves an Upload or ObjectRef descriptor to archive bytes.
// For object references the retrieval strategy is decided before any network
// activity: presigned URLs are fetched anonymously, otherwise configured
// credentials are required.
func (r *Resolver) FetchArchive(ctx context.Context, desc domain.SourceDescriptor) (*Resolved, error) {
	switch desc.Kind {
	case domain.KindUpload:
		return &Resolved{Data: desc.Data}, nil

	case domain.KindObjectRef:
		bucket, key, err := ParseObjectURL(desc.RawURL)
		if err != nil {
			return nil, err
		}

		if IsPresigned(desc.RawURL) {
			data, err := r.fetchURL(ctx, desc.RawURL)
			if err != nil {
				return nil, err
			}
			return &Resolved{Data: data, ObjectKey: key}, nil
		}

		if r.objects == nil || !r.objects.Enabled() {
			return nil, fmt.Errorf("%w: bucket %q", domain.ErrCredentialsUnavailable, bucket)
		}

		data, err := r.objects.Get(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		return &Resolved{Data: data, ObjectKey: key}, nil

	default:
		return nil, fmt.Errorf("%w: descriptor kind %d is not an archive source", domain.ErrInternal, desc.Kind)
	}
}

// CloneInto clones the repository at url into dir and strips its version
// control metadata so the content is treated as plain files from here on.
func (r *Resolver) CloneInto(ctx context.Context, url, dir string) error {
	if err := r.git.Clone(ctx, url, dir); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	if err := os.RemoveAll(filepath.Join(dir, ".git")); err != nil {
		return fmt.Errorf("strip clone metadata: %w", err)
	}
	return nil
}

func (r *Resolver) fetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamFetchError{Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrUpstreamFetch, err)
	}
	return data, nil
}
