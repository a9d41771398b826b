package workflow

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/JakeFAU/webscraper/internal/workflow"

// NotifyWorkflow labels the verify-and-notify workflow in logs and metrics.
const NotifyWorkflow = "notify"

// Notify stages.
const (
	StageValidate = "validate"
	StageVerify   = "verify_identity"
	StageFetch    = "fetch_page"
	StageSend     = "send_email"
)

// Notifier runs the verify-and-notify workflow: every participant is checked against the
// identity registry, then the page at WebsiteURL is emailed verbatim to the recipients.
type Notifier struct {
	gate       IdentityGate
	pages      PageFetcher
	dispatcher Dispatcher
	recorder   Recorder
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewNotifier constructs a Notifier. A nil recorder disables metrics.
func NewNotifier(
	gate IdentityGate,
	pages PageFetcher,
	dispatcher Dispatcher,
	recorder Recorder,
	logger *zap.Logger,
) *Notifier {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		gate:       gate,
		pages:      pages,
		dispatcher: dispatcher,
		recorder:   recorder,
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
	}
}

// Run executes one invocation and echoes the event back on success.
// Verification requests issued before a later failure are not undone.
func (n *Notifier) Run(ctx context.Context, ev Event) (Event, error) {
	ctx, span := startSpan(ctx, n.tracer, NotifyWorkflow, ev)
	defer span.End()
	logger := n.logger.With(zap.String("event_id", ev.EventID), zap.String("workflow", NotifyWorkflow))
	logger.Info("event received", zap.Object("event", ev))
	fail := stageFailer(logger, span, n.recorder, NotifyWorkflow)

	participants := ev.Participants()
	if err := participants.Validate(); err != nil {
		return Event{}, fail(StageValidate, err)
	}

	// One address at a time, from first: provider calls and log order depend on it.
	for _, addr := range participants.Addresses() {
		state, err := n.gate.EnsureVerified(ctx, addr)
		if err != nil {
			return Event{}, fail(StageVerify, err)
		}
		logger.Info("identity status", zap.String("email", addr), zap.Stringer("status", state))
	}

	html, err := n.pages.FetchPage(ctx, ev.WebsiteURL)
	if err != nil {
		return Event{}, fail(StageFetch, err)
	}

	logger.Info("sending email", zap.Int("recipients", len(participants.To)), zap.Int("html_bytes", len(html)))
	messageID, err := n.dispatcher.Send(ctx, participants, string(html))
	if err != nil {
		return Event{}, fail(StageSend, err)
	}
	logger.Info("email sent", zap.String("message_id", messageID))

	n.recorder.ObserveInvocation(NotifyWorkflow, nil)
	return ev, nil
}

func startSpan(ctx context.Context, tracer trace.Tracer, workflow string, ev Event) (context.Context, trace.Span) {
	return tracer.Start(ctx, workflow, trace.WithAttributes(
		attribute.String("webscraper.event_id", ev.EventID),
		attribute.String("webscraper.website_url", ev.WebsiteURL),
	))
}

// stageFailer logs an error once, at the stage that caught it, and returns it unchanged.
func stageFailer(
	logger *zap.Logger,
	span trace.Span,
	recorder Recorder,
	workflow string,
) func(stage string, err error) error {
	return func(stage string, err error) error {
		category := Category(err)
		logger.Error("workflow stage failed",
			zap.String("stage", stage),
			zap.String("category", category),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetAttributes(
			attribute.String("webscraper.stage", stage),
			attribute.String("webscraper.error_category", category),
		)
		span.SetStatus(codes.Error, stage)
		recorder.ObserveStageFailure(workflow, stage, err)
		recorder.ObserveInvocation(workflow, err)
		return err
	}
}
