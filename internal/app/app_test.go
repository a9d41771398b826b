// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesapi "github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/webscraper/internal/app"
	"github.com/JakeFAU/webscraper/internal/clock/system"
	"github.com/JakeFAU/webscraper/internal/config"
	"github.com/JakeFAU/webscraper/internal/storage/memory"
	"github.com/JakeFAU/webscraper/internal/workflow"
)

const pageHTML = `<html><body>
<a href="/files/summary.pdf">Summary pdf</a>
<a href="/files/data.csv">Download csv</a>
</body></html>`

func TestNew_ArchiveEndToEnd(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	store := memory.NewBlobStore("archive")
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	a, err := app.New(context.Background(), baseConfig(config.BackendMemory, "archive"), zap.NewNop(),
		app.WithSESAPI(&fakeSES{}),
		app.WithObjectStore(store),
		app.WithClock(system.Fixed(now)),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	code, err := a.Archiver().Run(context.Background(), workflow.Event{
		EventID:           "evt-1",
		WebsiteURL:        site.URL + "/reports/index.html",
		XPath:             "//a",
		FilePrefixPattern: "_%Y%m%d",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	obj, ok := store.Get("archive", "report_20240305.csv")
	require.True(t, ok)
	assert.Equal(t, "a,b\n1,2\n", string(obj.Data))
	assert.Equal(t, "text/csv", obj.ContentType)
}

func TestNew_MemoryBackendSeedsConfiguredBucket(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	a, err := app.New(context.Background(), baseConfig(config.BackendMemory, "archive"), zap.NewNop(),
		app.WithSESAPI(&fakeSES{}),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	code, err := a.Archiver().Run(context.Background(), workflow.Event{
		WebsiteURL:        site.URL + "/reports/index.html",
		XPath:             "//a",
		FilePrefixPattern: "%Y",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
}

func TestNew_NotifyEndToEnd(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	ses := &fakeSES{
		identities: []string{"from@example.com", "to@example.com"},
		verified:   map[string]bool{"from@example.com": true, "to@example.com": true},
	}
	a, err := app.New(context.Background(), baseConfig(config.BackendMemory, ""), zap.NewNop(),
		app.WithSESAPI(ses),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ev := workflow.Event{
		EventID:    "evt-2",
		From:       "from@example.com",
		To:         []string{"to@example.com"},
		WebsiteURL: site.URL + "/reports/index.html",
	}
	out, err := a.Notifier().Run(context.Background(), ev)

	require.NoError(t, err)
	assert.Equal(t, ev, out)
	require.NotNil(t, ses.lastSend)
	assert.Equal(t, pageHTML, aws.ToString(ses.lastSend.Message.Body.Html.Data))
	assert.Equal(t, "Testing Amazon SES through the API", aws.ToString(ses.lastSend.Message.Subject.Data))
	assert.Equal(t, []string{"to@example.com"}, ses.lastSend.Destination.ToAddresses)
}

func TestNew_LocalBackend(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(config.BackendLocal, "archive")
	cfg.Storage.Local.BaseDir = t.TempDir()

	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithSESAPI(&fakeSES{}))

	require.NoError(t, err)
	a.Close()
}

func TestNew_UnknownBackend(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), baseConfig("ftp", ""), zap.NewNop(), app.WithSESAPI(&fakeSES{}))

	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestApp_Handler(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), baseConfig(config.BackendMemory, ""), zap.NewNop(),
		app.WithSESAPI(&fakeSES{}),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_AutoLoaderFetchesStaticPageWithoutBrowser(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	cfg := baseConfig(config.BackendMemory, "archive")
	cfg.Page.Loader = config.LoaderAuto
	cfg.Headless = config.HeadlessConfig{MaxParallel: 1, NavTimeoutSec: 5, PromotionThreshold: 16}

	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithSESAPI(&fakeSES{}))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	code, err := a.Archiver().Run(context.Background(), workflow.Event{
		WebsiteURL:        site.URL + "/reports/index.html",
		XPath:             "//a",
		FilePrefixPattern: "%Y",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
}

func TestNew_TracingEnabledRegistersShutdown(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(config.BackendMemory, "")
	cfg.Tracing = config.TracingConfig{Enabled: true, SampleRatio: 0.5}

	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithSESAPI(&fakeSES{}))

	require.NoError(t, err)
	require.NotPanics(t, a.Close)
}

// --- helpers/fakes ---

func baseConfig(backend, bucket string) config.Config {
	return config.Config{
		Server:  config.ServerConfig{Port: 8080, RequestTimeoutSeconds: 10},
		HTTP:    config.HTTPConfig{TimeoutSeconds: 5, UserAgent: "webscraper-test"},
		Page:    config.PageConfig{Loader: config.LoaderHTTP},
		AWS:     config.AWSConfig{Region: "eu-west-2"},
		Mail:    config.MailConfig{Subject: "Testing Amazon SES through the API", TextBody: "text"},
		Storage: config.StorageConfig{Backend: backend, Bucket: bucket, ContentType: "text/csv"},
		Scrape:  config.ScrapeConfig{MatchToken: "csv"},
		Clock:   config.ClockConfig{Location: "UTC"},
	}
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/reports/index.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, pageHTML)
	})
	mux.HandleFunc("/files/data.csv", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
		fmt.Fprint(w, "a,b\n1,2\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fakeSES struct {
	mu         sync.Mutex
	identities []string
	verified   map[string]bool
	lastSend   *sesapi.SendEmailInput
}

func (f *fakeSES) ListIdentities(
	context.Context, *sesapi.ListIdentitiesInput, ...func(*sesapi.Options),
) (*sesapi.ListIdentitiesOutput, error) {
	return &sesapi.ListIdentitiesOutput{Identities: f.identities}, nil
}

func (f *fakeSES) GetIdentityVerificationAttributes(
	_ context.Context, in *sesapi.GetIdentityVerificationAttributesInput, _ ...func(*sesapi.Options),
) (*sesapi.GetIdentityVerificationAttributesOutput, error) {
	attrs := make(map[string]types.IdentityVerificationAttributes, len(in.Identities))
	for _, id := range in.Identities {
		status := types.VerificationStatusPending
		if f.verified[id] {
			status = types.VerificationStatusSuccess
		}
		attrs[id] = types.IdentityVerificationAttributes{VerificationStatus: status}
	}
	return &sesapi.GetIdentityVerificationAttributesOutput{VerificationAttributes: attrs}, nil
}

func (f *fakeSES) VerifyEmailIdentity(
	context.Context, *sesapi.VerifyEmailIdentityInput, ...func(*sesapi.Options),
) (*sesapi.VerifyEmailIdentityOutput, error) {
	return &sesapi.VerifyEmailIdentityOutput{}, nil
}

func (f *fakeSES) SendEmail(
	_ context.Context, in *sesapi.SendEmailInput, _ ...func(*sesapi.Options),
) (*sesapi.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSend = in
	return &sesapi.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}
