package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
)

func TestUserService_RegistrationNeedsApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered, err := env.svc.Users.Register(ctx, RegisterUserCommand{Email: " Picker@Example.com ", Role: "puller"})
	require.NoError(t, err)
	assert.Equal(t, "picker@example.com", registered.Email)
	assert.False(t, registered.Approved)

	_, err = env.svc.Authorizer.Resolve(ctx, "picker@example.com")
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))

	count, err := env.svc.Users.CountPending(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Count)

	_, err = env.svc.Users.Approve(ctx, UserCommand{Actor: manager, Email: "PICKER@example.com"})
	require.NoError(t, err)

	actor, err := env.svc.Authorizer.Resolve(ctx, "picker@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RolePuller, actor.Role)
	assert.False(t, actor.IsManager())
}

func TestUserService_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Users.Register(ctx, RegisterUserCommand{Email: "a@example.com", Role: "admin"})
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))

	_, err = env.svc.Users.Register(ctx, RegisterUserCommand{Email: "not-an-email", Role: "puller"})
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))

	_, err = env.svc.Users.Register(ctx, RegisterUserCommand{Email: "a@example.com", Role: "manager"})
	require.NoError(t, err)
	_, err = env.svc.Users.Register(ctx, RegisterUserCommand{Email: "A@example.com", Role: "puller"})
	assert.True(t, errors.HasCode(err, errors.CodeConflict))
}

func TestUserService_RoleChangeAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Users.EnsureManager(ctx, manager.Email)
	require.NoError(t, err)
	_, err = env.svc.Users.Register(ctx, RegisterUserCommand{Email: puller.Email, Role: "puller"})
	require.NoError(t, err)
	_, err = env.svc.Users.Approve(ctx, UserCommand{Actor: manager, Email: puller.Email})
	require.NoError(t, err)

	_, err = env.svc.Users.ChangeRole(ctx, ChangeRoleCommand{Actor: puller, Email: puller.Email, Role: "manager"})
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))

	promoted, err := env.svc.Users.ChangeRole(ctx, ChangeRoleCommand{Actor: manager, Email: puller.Email, Role: "Manager"})
	require.NoError(t, err)
	assert.Equal(t, "manager", promoted.Role)

	users, err := env.svc.Users.List(ctx, manager)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, env.svc.Users.Delete(ctx, UserCommand{Actor: manager, Email: puller.Email}))
	_, err = env.svc.Authorizer.Resolve(ctx, puller.Email)
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))

	err = env.svc.Users.Delete(ctx, UserCommand{Actor: manager, Email: puller.Email})
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestUserService_EnsureManagerPromotesExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Users.Register(ctx, RegisterUserCommand{Email: "lead@example.com", Role: "puller"})
	require.NoError(t, err)

	user, err := env.svc.Users.EnsureManager(ctx, "lead@example.com")
	require.NoError(t, err)
	assert.True(t, user.Approved)
	assert.Equal(t, "manager", user.Role)

	actor, err := env.svc.Authorizer.Resolve(ctx, "lead@example.com")
	require.NoError(t, err)
	assert.True(t, actor.IsManager())
}

func TestAuthorizer_RejectsUnknownAndAnonymous(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Authorizer.Resolve(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.svc.Authorizer.Resolve(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestActivityService_RecentIsManagerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, env.store.Audit().Append(ctx, &domain.AuditRecord{
			ID:     string(rune('a' + i)),
			Actor:  manager.Email,
			Role:   manager.Role,
			Action: domain.ActionReceive,
			Detail: "received",
		}))
	}

	records, err := env.svc.Activity.Recent(ctx, manager, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = env.svc.Activity.Recent(ctx, puller, 0)
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))
}
