package workflow

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ArchiveWorkflow labels the scrape-and-archive workflow in logs and metrics.
const ArchiveWorkflow = "archive"

// Archive stages.
const (
	StageResolve  = "resolve_link"
	StageDownload = "fetch_file"
	StageBuildKey = "build_key"
	StageUpload   = "upload"
)

// Archiver runs the scrape-and-archive workflow: find the download link on a page, fetch the
// file and upload it under a timestamped key.
type Archiver struct {
	resolver   LinkResolver
	files      FileFetcher
	keys       KeyBuilder
	uploader   Uploader
	bucket     BucketSource
	clock      Clock
	matchToken string
	recorder   Recorder
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewArchiver constructs an Archiver. matchToken is used for events that carry none.
func NewArchiver(
	resolver LinkResolver,
	files FileFetcher,
	keys KeyBuilder,
	uploader Uploader,
	bucket BucketSource,
	clock Clock,
	matchToken string,
	recorder Recorder,
	logger *zap.Logger,
) *Archiver {
	if matchToken == "" {
		matchToken = DefaultMatchToken
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		resolver:   resolver,
		files:      files,
		keys:       keys,
		uploader:   uploader,
		bucket:     bucket,
		clock:      clock,
		matchToken: matchToken,
		recorder:   recorder,
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
	}
}

// Run executes one invocation and returns the storage provider's status code.
func (a *Archiver) Run(ctx context.Context, ev Event) (int, error) {
	ctx, span := startSpan(ctx, a.tracer, ArchiveWorkflow, ev)
	defer span.End()
	logger := a.logger.With(zap.String("event_id", ev.EventID), zap.String("workflow", ArchiveWorkflow))
	// Absence is not checked here; the uploader reports it.
	bucket := a.bucket.Bucket()
	logger.Info("event received", zap.Object("event", ev))
	fail := stageFailer(logger, span, a.recorder, ArchiveWorkflow)

	link, err := a.resolver.Resolve(ctx, ev.ScrapeTarget(a.matchToken))
	if err != nil {
		return 0, fail(StageResolve, err)
	}
	logger.Info("download link resolved", zap.String("url", link.AbsoluteURL))

	file, err := a.files.FetchFile(ctx, link.AbsoluteURL)
	if err != nil {
		return 0, fail(StageDownload, err)
	}
	logger.Info("file downloaded", zap.String("name", file.AdvertisedName), zap.Int("bytes", len(file.Bytes)))

	key, err := a.keys.Build(file.AdvertisedName, ev.FilePrefixPattern, a.clock.Now())
	if err != nil {
		return 0, fail(StageBuildKey, err)
	}

	result, err := a.uploader.Upload(ctx, file.Bytes, StorageKey{Bucket: bucket, Key: key})
	if err != nil {
		return 0, fail(StageUpload, err)
	}
	logger.Info("file archived",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.String("uri", result.URI),
		zap.String("sha256", result.Digest),
		zap.Int("status", result.StatusCode),
	)

	span.SetAttributes(
		attribute.String("webscraper.object_key", key),
		attribute.Int("webscraper.status_code", result.StatusCode),
	)
	a.recorder.ObserveUpload(len(file.Bytes))
	a.recorder.ObserveInvocation(ArchiveWorkflow, nil)
	return result.StatusCode, nil
}
