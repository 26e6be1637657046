package application

import (
	"context"
	stderrors "errors"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
)

// Authorizer resolves a caller identity through the user directory on every call.
type Authorizer struct {
	users  domain.UserRepository
	policy *StorePolicy
}

// NewAuthorizer creates an Authorizer backed by users.
func NewAuthorizer(users domain.UserRepository, policy *StorePolicy) *Authorizer {
	return &Authorizer{users: users, policy: policy}
}

// Resolve returns the actor for email. Unknown and unapproved users are unauthorized.
func (a *Authorizer) Resolve(ctx context.Context, email string) (domain.Actor, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Actor{}, errors.ErrUnauthorized("").Wrap(domain.ErrUnauthorized)
	}

	user, err := read(ctx, a.policy, "resolveUser", func(ctx context.Context) (*domain.User, error) {
		return a.users.FindByEmail(ctx, email)
	})
	if stderrors.Is(err, domain.ErrNotFound) {
		return domain.Actor{}, errors.ErrUnauthorized("unknown user").Wrap(domain.ErrUnauthorized)
	}
	if err != nil {
		return domain.Actor{}, toAppError(err)
	}

	actor, err := user.Actor()
	if err != nil {
		return domain.Actor{}, errors.ErrUnauthorized("user is awaiting approval").Wrap(err)
	}
	return actor, nil
}

// requireManager rejects non-manager actors.
func requireManager(actor domain.Actor, operation string) error {
	if actor.Email == "" {
		return errors.ErrUnauthorized("").Wrap(domain.ErrUnauthorized)
	}
	if !actor.IsManager() {
		return errors.ErrForbidden(operation + " requires the manager role").Wrap(domain.ErrForbidden)
	}
	return nil
}

// requireActor rejects calls without a resolved caller.
func requireActor(actor domain.Actor) error {
	if actor.Email == "" {
		return errors.ErrUnauthorized("").Wrap(domain.ErrUnauthorized)
	}
	return nil
}
