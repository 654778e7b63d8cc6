package service

import (
	"context"
	"errors"

	"taskprogress/internal/model"
	"taskprogress/internal/repository"

	"gorm.io/gorm"
)

// reloadActor re-reads the acting user inside tx so a deactivation or role
// change committed mid-request is honoured. A missing user comes back as
// nil, which the evaluator refuses.
func reloadActor(ctx context.Context, tx *gorm.DB, actor *model.User) (*model.User, error) {
	if actor == nil || actor.ID == 0 {
		return nil, nil
	}
	current, err := repository.NewUserRepository(tx).GetByID(ctx, actor.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return current, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
