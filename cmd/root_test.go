package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/webscraper/internal/api"
	"github.com/JakeFAU/webscraper/internal/config"
	"github.com/JakeFAU/webscraper/internal/workflow"
)

func TestNotifyCmd_EchoesEventFromStdin(t *testing.T) {
	fake := installFakeApp(t)

	out, err := execute(t, `{"eventId":"evt-1","from":"a@example.com","to":["b@example.com"],"websiteUrl":"https://example.com"}`,
		"notify")

	require.NoError(t, err)
	var ev workflow.Event
	require.NoError(t, json.Unmarshal([]byte(out), &ev))
	assert.Equal(t, "evt-1", ev.EventID)
	assert.Equal(t, []string{"b@example.com"}, ev.To)
	assert.Equal(t, "https://example.com", fake.notifier.last.WebsiteURL)
	assert.True(t, fake.closed)
}

func TestNotifyCmd_EchoesUnknownFieldsAndMissingID(t *testing.T) {
	fake := installFakeApp(t)

	in := `{"from":"a@example.com","to":["b@example.com"],"websiteUrl":"https://example.com","xpath":"","note":"kept"}`
	out, err := execute(t, in, "notify")

	require.NoError(t, err)
	assert.JSONEq(t, in, out)
	assert.NotEmpty(t, fake.notifier.last.EventID, "the workflow still sees a generated ID")
}

func TestArchiveCmd_ReadsEventFile(t *testing.T) {
	fake := installFakeApp(t)
	fake.archiver.code = http.StatusOK

	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"websiteUrl":"https://example.com/a/","xpath":"//a","filePrefixPattern":"%Y"}`), 0o600))

	out, err := execute(t, "", "archive", "--event", path)

	require.NoError(t, err)
	var resp api.ArchiveResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.EventID, "missing event IDs are generated")
	assert.Equal(t, "//a", fake.archiver.last.XPath)
}

func TestArchiveCmd_PropagatesWorkflowError(t *testing.T) {
	fake := installFakeApp(t)
	fake.archiver.err = workflow.ErrNoMatchingNode

	_, err := execute(t, `{"eventId":"evt-9"}`, "archive")

	require.ErrorIs(t, err, workflow.ErrNoMatchingNode)
	assert.Contains(t, err.Error(), "evt-9")
	assert.True(t, fake.closed, "services are closed after a failed run")
}

func TestNotifyCmd_ClosesAppOnInvalidEvent(t *testing.T) {
	fake := installFakeApp(t)

	_, err := execute(t, "{not json", "notify")

	require.Error(t, err)
	assert.True(t, fake.closed)
}

func TestNotifyCmd_InvalidJSON(t *testing.T) {
	installFakeApp(t)

	_, err := execute(t, "{not json", "notify")

	require.ErrorIs(t, err, workflow.ErrInvalidEvent)
}

func TestRootCmd_AppInitFailure(t *testing.T) {
	original := newApp
	t.Cleanup(func() { newApp = original })
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) {
		return nil, errors.New("no credentials")
	}

	_, err := execute(t, "{}", "notify")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestResolveApp_Missing(t *testing.T) {
	t.Parallel()

	_, err := resolveApp(context.Background())
	require.EqualError(t, err, "application services not initialized")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, listener, handler, zap.NewNop()) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// --- helpers/fakes ---

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := run(context.Background(), root)
	return out.String(), err
}

func installFakeApp(t *testing.T) *fakeApp {
	t.Helper()
	fake := &fakeApp{notifier: &fakeNotifier{}, archiver: &fakeArchiver{}}
	original := newApp
	t.Cleanup(func() { newApp = original })
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) {
		return fake, nil
	}
	return fake
}

type fakeApp struct {
	notifier *fakeNotifier
	archiver *fakeArchiver
	closed   bool
}

func (f *fakeApp) Close()                      { f.closed = true }
func (f *fakeApp) Logger() *zap.Logger         { return zap.NewNop() }
func (f *fakeApp) Notifier() api.NotifyRunner  { return f.notifier }
func (f *fakeApp) Archiver() api.ArchiveRunner { return f.archiver }
func (f *fakeApp) Handler() http.Handler       { return http.NotFoundHandler() }

type fakeNotifier struct {
	last workflow.Event
	err  error
}

func (f *fakeNotifier) Run(_ context.Context, ev workflow.Event) (workflow.Event, error) {
	f.last = ev
	if f.err != nil {
		return workflow.Event{}, f.err
	}
	return ev, nil
}

type fakeArchiver struct {
	last workflow.Event
	code int
	err  error
}

func (f *fakeArchiver) Run(_ context.Context, ev workflow.Event) (int, error) {
	f.last = ev
	if f.err != nil {
		return 0, f.err
	}
	return f.code, nil
}
