package identity

import (
	"context"

	"lifeboard/internal/domain/model"
	"lifeboard/internal/domain/ports/adapter"
)

var _ adapter.IdentityProvisioner = NoopProvisioner{}

// NoopProvisioner is used when no identity provider is configured.
// Every call reports ProvisionSkipped; nothing is remembered.
type NoopProvisioner struct{}

func NewNoopProvisioner() NoopProvisioner { return NoopProvisioner{} }

func (NoopProvisioner) Name() string { return "noop" }

func (NoopProvisioner) EnsureUser(ctx context.Context, email string) (model.ProvisionResult, error) {
	return model.ProvisionSkipped, nil
}
