package application

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// UserService administers the identity directory. Credentials live with the
// external identity provider; the directory only holds roles and approval.
type UserService struct {
	deps   *Dependencies
	logger *logging.Logger
}

// NewUserService creates a UserService
func NewUserService(deps *Dependencies) *UserService {
	return &UserService{deps: deps, logger: deps.Logger.WithComponent("users")}
}

// Register adds an unapproved directory entry. It needs no resolved caller.
func (s *UserService) Register(ctx context.Context, cmd RegisterUserCommand) (*UserDTO, error) {
	role, err := domain.ParseRole(cmd.Role)
	if err != nil {
		return nil, toAppError(err)
	}
	user, err := domain.NewUser(cmd.Email, role, s.deps.now())
	if err != nil {
		return nil, toAppError(err)
	}

	if err := s.deps.Policy.Write(ctx, "registerUser", func(ctx context.Context) error {
		return s.deps.Repos.Users.Create(ctx, user)
	}); err != nil {
		s.logger.Error("Failed to register user", "email", user.Email, "error", err)
		return nil, withID(toAppError(err), "email", user.Email)
	}

	s.logger.Info("Registered user", "email", user.Email, "role", user.Role)
	s.deps.Auditor.Record(ctx, domain.Actor{Email: user.Email, Role: user.Role}, domain.ActionUserRegister,
		fmt.Sprintf("registered as %s", user.Role))
	return ToUserDTO(user), nil
}

// EnsureManager makes email an approved manager, creating the entry when
// needed. It bootstraps the first manager of an empty directory.
func (s *UserService) EnsureManager(ctx context.Context, email string) (*UserDTO, error) {
	user, err := domain.NewUser(email, domain.RoleManager, s.deps.now())
	if err != nil {
		return nil, toAppError(err)
	}
	user.Approved = true

	err = s.deps.Policy.Write(ctx, "ensureManager", func(ctx context.Context) error {
		return s.deps.Repos.Tx.RunInTransaction(ctx, "ensureManager", func(ctx context.Context) error {
			existing, err := s.deps.Repos.Users.FindByEmail(ctx, user.Email)
			if stderrors.Is(err, domain.ErrNotFound) {
				return s.deps.Repos.Users.Create(ctx, user)
			}
			if err != nil {
				return err
			}
			existing.Role = domain.RoleManager
			existing.Approved = true
			existing.UpdatedAt = user.UpdatedAt
			user = existing
			return s.deps.Repos.Users.Update(ctx, existing)
		})
	})
	if err != nil {
		s.logger.Error("Failed to ensure manager", "email", user.Email, "error", err)
		return nil, toAppError(err)
	}
	return ToUserDTO(user), nil
}

// Approve lets a registered user sign in.
func (s *UserService) Approve(ctx context.Context, cmd UserCommand) (*UserDTO, error) {
	if err := requireManager(cmd.Actor, "approve user"); err != nil {
		return nil, err
	}
	user, err := s.update(ctx, "approveUser", cmd.Email, func(u *domain.User) error {
		u.Approved = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionUserApprove, "approved "+user.Email)
	return ToUserDTO(user), nil
}

// ChangeRole sets the role of a user.
func (s *UserService) ChangeRole(ctx context.Context, cmd ChangeRoleCommand) (*UserDTO, error) {
	if err := requireManager(cmd.Actor, "change role"); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(cmd.Role)
	if err != nil {
		return nil, toAppError(err)
	}

	var previous domain.Role
	user, err := s.update(ctx, "changeRole", cmd.Email, func(u *domain.User) error {
		previous = u.Role
		u.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionUserRoleChange,
		fmt.Sprintf("changed role of %s from %s to %s", user.Email, previous, role))
	return ToUserDTO(user), nil
}

// Delete removes a directory entry. Requests and audit records it authored are kept.
func (s *UserService) Delete(ctx context.Context, cmd UserCommand) error {
	if err := requireManager(cmd.Actor, "delete user"); err != nil {
		return err
	}
	email := domain.NormalizeEmail(cmd.Email)
	if err := s.deps.Policy.Write(ctx, "deleteUser", func(ctx context.Context) error {
		return s.deps.Repos.Users.Delete(ctx, email)
	}); err != nil {
		s.logger.Error("Failed to delete user", "email", email, "error", err)
		return withID(toAppError(err), "email", email)
	}
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionUserDelete, "deleted "+email)
	return nil
}

// List returns the directory ordered by email.
func (s *UserService) List(ctx context.Context, actor domain.Actor) ([]*UserDTO, error) {
	if err := requireManager(actor, "list users"); err != nil {
		return nil, err
	}
	users, err := read(ctx, s.deps.Policy, "listUsers", func(ctx context.Context) ([]*domain.User, error) {
		return s.deps.Repos.Users.List(ctx)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	out := make([]*UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserDTO(u))
	}
	return out, nil
}

// CountPending returns the number of users awaiting approval.
func (s *UserService) CountPending(ctx context.Context, actor domain.Actor) (*CountDTO, error) {
	if err := requireManager(actor, "count pending users"); err != nil {
		return nil, err
	}
	n, err := read(ctx, s.deps.Policy, "countPendingUsers", func(ctx context.Context) (int64, error) {
		return s.deps.Repos.Users.CountPending(ctx)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return &CountDTO{Count: n}, nil
}

func (s *UserService) update(ctx context.Context, name, email string, change func(*domain.User) error) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	var user *domain.User
	err := s.deps.Policy.Write(ctx, name, func(ctx context.Context) error {
		return s.deps.Repos.Tx.RunInTransaction(ctx, name, func(ctx context.Context) error {
			u, err := s.deps.Repos.Users.FindByEmail(ctx, email)
			if err != nil {
				return err
			}
			if err := change(u); err != nil {
				return err
			}
			u.UpdatedAt = s.deps.now()
			if err := s.deps.Repos.Users.Update(ctx, u); err != nil {
				return err
			}
			user = u
			return nil
		})
	})
	if err != nil {
		s.logger.Error("Failed to update user", "operation", name, "email", email, "error", err)
		return nil, withID(toAppError(err), "email", email)
	}
	return user, nil
}
