package identity

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// MockRegistry is a testify mock of Registry.
type MockRegistry struct {
	mock.Mock
}

// ListEmailIdentities is the mock implementation.
func (m *MockRegistry) ListEmailIdentities(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	identities, _ := args.Get(0).([]string)
	return identities, args.Error(1) //nolint:wrapcheck
}

// VerificationStatus is the mock implementation.
func (m *MockRegistry) VerificationStatus(ctx context.Context, email string) (workflow.VerificationState, error) {
	args := m.Called(ctx, email)
	state, _ := args.Get(0).(workflow.VerificationState)
	return state, args.Error(1) //nolint:wrapcheck
}

// RequestVerification is the mock implementation.
func (m *MockRegistry) RequestVerification(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0) //nolint:wrapcheck
}
