package mail

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// MockSender is a testify mock of Sender.
type MockSender struct {
	mock.Mock
}

// Deliver is the mock implementation.
func (m *MockSender) Deliver(ctx context.Context, from string, to []string, msg workflow.EmailMessage) (string, error) {
	args := m.Called(ctx, from, to, msg)
	return args.String(0), args.Error(1) //nolint:wrapcheck
}
