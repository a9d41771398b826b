package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockGate struct{ mock.Mock }

func (m *mockGate) EnsureVerified(ctx context.Context, email string) (VerificationState, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(VerificationState), args.Error(1)
}

type mockPages struct{ mock.Mock }

func (m *mockPages) FetchPage(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Send(ctx context.Context, participants Participants, htmlBody string) (string, error) {
	args := m.Called(ctx, participants, htmlBody)
	return args.String(0), args.Error(1)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, target ScrapeTarget) (ResolvedLink, error) {
	args := m.Called(ctx, target)
	return args.Get(0).(ResolvedLink), args.Error(1)
}

type mockFiles struct{ mock.Mock }

func (m *mockFiles) FetchFile(ctx context.Context, url string) (DownloadedFile, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(DownloadedFile), args.Error(1)
}

type mockKeys struct{ mock.Mock }

func (m *mockKeys) Build(prefix, pattern string, now time.Time) (string, error) {
	args := m.Called(prefix, pattern, now)
	return args.String(0), args.Error(1)
}

type mockUploader struct{ mock.Mock }

func (m *mockUploader) Upload(ctx context.Context, data []byte, key StorageKey) (UploadResult, error) {
	args := m.Called(ctx, data, key)
	return args.Get(0).(UploadResult), args.Error(1)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type stageFailure struct {
	workflow string
	stage    string
	category string
}

type fakeRecorder struct {
	mu            sync.Mutex
	invocations   []string
	stageFailures []stageFailure
	uploaded      int
}

func (r *fakeRecorder) ObserveInvocation(workflow string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invocations = append(r.invocations, workflow+":"+Category(err))
}

func (r *fakeRecorder) ObserveStageFailure(workflow, stage string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stageFailures = append(r.stageFailures, stageFailure{workflow: workflow, stage: stage, category: Category(err)})
}

func (r *fakeRecorder) ObserveUpload(bytes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploaded += bytes
}
