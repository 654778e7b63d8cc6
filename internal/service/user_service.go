package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"taskprogress/internal/auth"
	"taskprogress/internal/model"
	"taskprogress/internal/permission"
	"taskprogress/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 80
	minFullNameLen = 2
	maxFullNameLen = 100
	minPasswordLen = 6
)

type UserInput struct {
	Username *string
	FullName *string
	Password *string
	Role     *string
	Active   *bool
}

type UserService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewUserService(db *gorm.DB, log *zap.SugaredLogger) *UserService {
	return &UserService{db: db, log: log}
}

func (s *UserService) List(ctx context.Context, actor *model.User) ([]model.User, error) {
	if err := permission.Evaluate(actor, permission.ManageUsers, nil).Err(); err != nil {
		return nil, err
	}
	return repository.NewUserRepository(s.db).List(ctx)
}

func (s *UserService) Get(ctx context.Context, actor *model.User, id uint) (*model.User, error) {
	if err := permission.Evaluate(actor, permission.ManageUsers, nil).Err(); err != nil {
		return nil, err
	}
	return repository.NewUserRepository(s.db).GetByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, actor *model.User, in UserInput) (*model.User, error) {
	var user *model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.authorize(ctx, tx, actor); err != nil {
			return err
		}
		users := repository.NewUserRepository(tx)

		user = &model.User{Active: true}
		for _, f := range []**string{&in.Username, &in.FullName, &in.Password, &in.Role} {
			if *f == nil {
				*f = new(string)
			}
		}
		if err := s.apply(ctx, users, user, in); err != nil {
			return err
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("user created", "user_id", user.ID, "role", user.Role, "by", actor.ID)
	return user, nil
}

// Update edits profile, role and active flag. Passwords change through
// ResetPassword only.
func (s *UserService) Update(ctx context.Context, actor *model.User, id uint, in UserInput) (*model.User, error) {
	var user *model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.authorize(ctx, tx, actor)
		if err != nil {
			return err
		}
		users := repository.NewUserRepository(tx)
		user, err = users.GetByID(ctx, id)
		if err != nil {
			return err
		}

		in.Password = nil
		if user.ID == current.ID {
			if in.Active != nil && !*in.Active {
				return invalid("active", "You cannot disable your own account")
			}
			if in.Role != nil && strings.TrimSpace(*in.Role) != string(model.RoleAdmin) {
				return invalid("role", "You cannot remove your own administrator role")
			}
		}
		if err := s.apply(ctx, users, user, in); err != nil {
			return err
		}
		if err := users.Update(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("user updated", "user_id", id, "by", actor.ID)
	return user, nil
}

func (s *UserService) ResetPassword(ctx context.Context, actor *model.User, id uint, password string) (*model.User, error) {
	var user *model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.authorize(ctx, tx, actor); err != nil {
			return err
		}
		users := repository.NewUserRepository(tx)
		var err error
		user, err = users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, users, user, UserInput{Password: &password}); err != nil {
			return err
		}
		return users.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("password reset", "user_id", id, "by", actor.ID)
	return user, nil
}

// Delete removes a user. Their tasks stay and lose their creator.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id uint) (*model.User, error) {
	var user *model.User
	var released int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.authorize(ctx, tx, actor)
		if err != nil {
			return err
		}
		if current.ID == id {
			return invalid("user", "You cannot delete your own account")
		}
		users := repository.NewUserRepository(tx)
		user, err = users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		released, err = users.ReleaseTasks(ctx, id)
		if err != nil {
			return fmt.Errorf("release tasks: %w", err)
		}
		return users.Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("user deleted", "user_id", id, "released_tasks", released, "by", actor.ID)
	return user, nil
}

func (s *UserService) authorize(ctx context.Context, tx *gorm.DB, actor *model.User) (*model.User, error) {
	current, err := reloadActor(ctx, tx, actor)
	if err != nil {
		return nil, err
	}
	if err := permission.Evaluate(current, permission.ManageUsers, nil).Err(); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *UserService) apply(ctx context.Context, users *repository.UserRepository, user *model.User, in UserInput) error {
	var errs fieldErrors
	next := *user

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		n := utf8.RuneCountInString(username)
		switch {
		case n < minUsernameLen || n > maxUsernameLen:
			errs.add("username", fmt.Sprintf("username must be between %d and %d characters", minUsernameLen, maxUsernameLen))
		default:
			taken, err := users.UsernameTaken(ctx, username, user.ID)
			if err != nil {
				return err
			}
			if taken {
				errs.add("username", fmt.Sprintf("username %q already exists", username))
			} else {
				next.Username = username
			}
		}
	}
	if in.FullName != nil {
		fullName := strings.TrimSpace(*in.FullName)
		if n := utf8.RuneCountInString(fullName); n < minFullNameLen || n > maxFullNameLen {
			errs.add("full_name", fmt.Sprintf("full_name must be between %d and %d characters", minFullNameLen, maxFullNameLen))
		} else {
			next.FullName = fullName
		}
	}
	if in.Role != nil {
		role, err := model.ParseRole(strings.TrimSpace(*in.Role))
		if err != nil {
			errs.add("role", "role must be one of admin, data_entry, supervisor")
		} else {
			next.Role = role
		}
	}
	if in.Active != nil {
		next.Active = *in.Active
	}
	if in.Password != nil {
		if utf8.RuneCountInString(*in.Password) < minPasswordLen {
			errs.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
		} else {
			hash, err := auth.HashPassword(*in.Password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			next.PasswordHash = hash
		}
	}

	if err := errs.err(); err != nil {
		return err
	}
	*user = next
	return nil
}
