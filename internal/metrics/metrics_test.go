package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

func TestOutcome(t *testing.T) {
	t.Parallel()

	require.Equal(t, "success", Outcome(nil))
	require.Equal(t, "storage", Outcome(workflow.ErrMissingBucket))
	require.Equal(t, "link_resolution", Outcome(workflow.ErrNoMatchingNode))
	require.Equal(t, "unknown", Outcome(errors.New("boom")))
}

func TestInitIdempotent(t *testing.T) {
	Init()
	first := invocationsTotal
	Init()

	require.NotNil(t, first)
	require.Same(t, first, invocationsTotal)
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()

	success := invocationsTotal.WithLabelValues(workflow.ArchiveWorkflow, "success")
	failed := invocationsTotal.WithLabelValues(workflow.NotifyWorkflow, "identity")
	stage := stageFailuresTotal.WithLabelValues(workflow.NotifyWorkflow, workflow.StageVerify, "identity")
	beforeSuccess := testutil.ToFloat64(success)
	beforeFailed := testutil.ToFloat64(failed)
	beforeStage := testutil.ToFloat64(stage)
	beforeBytes := testutil.ToFloat64(uploadedBytesTotal)

	rec.ObserveInvocation(workflow.ArchiveWorkflow, nil)
	rec.ObserveInvocation(workflow.NotifyWorkflow, workflow.ErrUnknownIdentity)
	rec.ObserveStageFailure(workflow.NotifyWorkflow, workflow.StageVerify, workflow.ErrUnknownIdentity)
	rec.ObserveUpload(128)
	rec.ObserveUpload(0)

	require.InDelta(t, beforeSuccess+1, testutil.ToFloat64(success), 0)
	require.InDelta(t, beforeFailed+1, testutil.ToFloat64(failed), 0)
	require.InDelta(t, beforeStage+1, testutil.ToFloat64(stage), 0)
	require.InDelta(t, beforeBytes+128, testutil.ToFloat64(uploadedBytesTotal), 0)
}

func TestObservePromotion(t *testing.T) {
	Init()
	rendered := headlessPromotionsTotal.WithLabelValues("rendered")
	before := testutil.ToFloat64(rendered)

	ObservePromotion("rendered")

	require.InDelta(t, before+1, testutil.ToFloat64(rendered), 0)
}
