package domain

// SourceKind discriminates the three supported project source shapes.
type SourceKind int

const (
	KindUpload SourceKind = iota
	KindGitURL
	KindObjectRef
)

// SourceDescriptor is the tagged union consumed exactly once by the source
// resolver. Only the fields for the active Kind are populated.
type SourceDescriptor struct {
	Kind SourceKind

	// KindUpload
	Data     []byte
	Filename string

	// KindGitURL
	URL string

	// KindObjectRef: the raw object store URL as submitted. Bucket, key and
	// the presigned flag are derived by the resolver.
	RawURL string
}

func NewUpload(data []byte, filename string) SourceDescriptor {
	return SourceDescriptor{Kind: KindUpload, Data: data, Filename: filename}
}

func NewGitURL(url string) SourceDescriptor {
	return SourceDescriptor{Kind: KindGitURL, URL: url}
}

func NewObjectRef(rawURL string) SourceDescriptor {
	return SourceDescriptor{Kind: KindObjectRef, RawURL: rawURL}
}

// SourceType is the persisted tag for a project's origin.
func (d SourceDescriptor) SourceType() string {
	switch d.Kind {
	case KindUpload:
		return "zip_upload"
	case KindGitURL:
		return "git_url"
	case KindObjectRef:
		return "s3_zip"
	default:
		return "unknown"
	}
}
