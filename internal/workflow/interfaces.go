package workflow

import (
	"context"
	"time"
)

// IdentityGate checks and, when needed, starts verification of a sender or recipient.
type IdentityGate interface {
	EnsureVerified(ctx context.Context, email string) (VerificationState, error)
}

// PageFetcher retrieves the raw markup of a web page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// Dispatcher composes and sends the notification email, returning the provider message ID.
type Dispatcher interface {
	Send(ctx context.Context, participants Participants, htmlBody string) (string, error)
}

// LinkResolver turns a scrape target into exactly one download URL.
type LinkResolver interface {
	Resolve(ctx context.Context, target ScrapeTarget) (ResolvedLink, error)
}

// FileFetcher downloads a file and reports its advertised name.
type FileFetcher interface {
	FetchFile(ctx context.Context, url string) (DownloadedFile, error)
}

// KeyBuilder derives the object key from a filename prefix, a timestamp pattern and a time.
type KeyBuilder interface {
	Build(prefix, pattern string, now time.Time) (string, error)
}

// Uploader stores bytes under a key.
type Uploader interface {
	Upload(ctx context.Context, data []byte, key StorageKey) (UploadResult, error)
}

// BucketSource reports the bucket name. It is consulted once per invocation.
type BucketSource interface {
	Bucket() string
}

// BucketFunc adapts a function to BucketSource.
type BucketFunc func() string

// Bucket calls f.
func (f BucketFunc) Bucket() string {
	return f()
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Recorder observes workflow outcomes. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveInvocation(workflow string, err error)
	ObserveStageFailure(workflow, stage string, err error)
	ObserveUpload(bytes int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveInvocation(string, error)           {}
func (nopRecorder) ObserveStageFailure(string, string, error) {}
func (nopRecorder) ObserveUpload(int)                         {}
