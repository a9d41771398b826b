// Package identity gates email participants on their verification state with the delivery
// provider's identity registry.
package identity

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// Registry is the provider's identity registry.
type Registry interface {
	// ListEmailIdentities returns every registered email identity.
	ListEmailIdentities(ctx context.Context) ([]string, error)
	// VerificationStatus returns the verification state of a registered identity.
	VerificationStatus(ctx context.Context, email string) (workflow.VerificationState, error)
	// RequestVerification asks the provider to send a verification email.
	RequestVerification(ctx context.Context, email string) error
}

// Gate implements workflow.IdentityGate over a Registry.
type Gate struct {
	registry Registry
	logger   *zap.Logger
}

// NewGate constructs a Gate.
func NewGate(registry Registry, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{registry: registry, logger: logger}
}

// CheckStatus returns the verification state of email. The address must already be
// registered: the provider cannot report attributes for unknown identities.
func (g *Gate) CheckStatus(ctx context.Context, email string) (workflow.VerificationState, error) {
	identities, err := g.registry.ListEmailIdentities(ctx)
	if err != nil {
		return workflow.Unknown, err
	}
	if !slices.Contains(identities, email) {
		return workflow.Unknown, fmt.Errorf(
			"%w: %q must be a registered email or domain identity", workflow.ErrUnknownIdentity, email)
	}
	state, err := g.registry.VerificationStatus(ctx, email)
	if err != nil {
		return workflow.Unknown, err
	}
	return state, nil
}

// EnsureVerified checks email and requests verification when it is not yet verified.
// It returns the state observed before any request; completion happens out of band.
func (g *Gate) EnsureVerified(ctx context.Context, email string) (workflow.VerificationState, error) {
	state, err := g.CheckStatus(ctx, email)
	if err != nil {
		return state, err
	}
	if state == workflow.Verified {
		return state, nil
	}

	if err := g.registry.RequestVerification(ctx, email); err != nil {
		if errors.Is(err, workflow.ErrIdentity) || errors.Is(err, workflow.ErrTransport) {
			return state, err
		}
		return state, fmt.Errorf("%w: %s: %w", workflow.ErrVerificationRequestFailed, email, err)
	}
	g.logger.Info("verification email requested",
		zap.String("email", email),
		zap.Stringer("previous_status", state),
	)
	return state, nil
}
