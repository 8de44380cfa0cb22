package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
)

// ParseObjectURL recovers (bucket, key) from the three supported address
// styles:
//
//	s3://bucket/key                              explicit scheme
//	https://bucket.s3.region.amazonaws.com/key   virtual-hosted style
//	https://s3.region.amazonaws.com/bucket/key   path style
func ParseObjectURL(raw string) (bucket, key string, err error) {
	if strings.HasPrefix(raw, "s3://") {
		rest := strings.TrimPrefix(raw, "s3://")
		idx := strings.Index(rest, "/")
		if idx <= 0 || idx == len(rest)-1 {
			return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidReference, raw)
		}
		return rest[:idx], rest[idx+1:], nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidReference, raw)
	}

	host := strings.Split(u.Hostname(), ".")
	path := strings.TrimPrefix(u.Path, "/")

	// virtual-hosted style: bucket.s3.region.amazonaws.com, bucket.s3.amazonaws.com
	if len(host) >= 3 && strings.HasPrefix(host[1], "s3") {
		if host[0] == "" || path == "" {
			return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidReference, raw)
		}
		return host[0], path, nil
	}

	// path style: s3.region.amazonaws.com/bucket/key
	if strings.HasPrefix(host[0], "s3") {
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidReference, raw)
		}
		return parts[0], parts[1], nil
	}

	return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidReference, raw)
}

// IsPresigned reports whether the URL carries an embedded signature that
// authorizes anonymous retrieval. Only query parameters count; an object key
// containing the same literal text must not be treated as presigned.
func IsPresigned(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	for key := range u.Query() {
		switch strings.ToLower(key) {
		case "x-amz-signature", "x-amz-credential":
			return true
		}
	}
	return false
}
