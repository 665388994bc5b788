package adapter

import (
	"context"

	"lifeboard/internal/domain/model"
)

// IdentityProvisioner is the port towards the identity provider (auth backend).
//
// EnsureUser makes sure an account exists for email so a licensed buyer can sign
// in right away. "Already exists" is reported as model.ProvisionAlreadyExists with
// a nil error; any other failure is returned as an error.
type IdentityProvisioner interface {
	Name() string
	EnsureUser(ctx context.Context, email string) (model.ProvisionResult, error)
}
