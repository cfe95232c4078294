// Package repository содержит репозитории для работы с базой данных.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"timetablebot/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SubscriberRepository реализует model.SubscriberRepository поверх bun
type SubscriberRepository struct {
	db     bun.IDB
	logger *zap.Logger
}

// NewSubscriberRepository создает новый репозиторий подписчиков
func NewSubscriberRepository(db bun.IDB, logger *zap.Logger) *SubscriberRepository {
	return &SubscriberRepository{
		db:     db,
		logger: logger,
	}
}

func storeError(op string, err error) error {
	return &model.StoreError{Op: op, Err: err}
}

// ListNotifiable возвращает пользователей с включёнными уведомлениями и их группы
func (r *SubscriberRepository) ListNotifiable(ctx context.Context) ([]model.Subscriber, error) {
	var users []*model.User

	err := r.db.NewSelect().
		Model(&users).
		Relation("Groups").
		Where("u.is_notifies_enabled = ?", true).
		Order("u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storeError("list notifiable", err)
	}

	subscribers := make([]model.Subscriber, 0, len(users))
	for _, u := range users {
		subscribers = append(subscribers, model.SubscriberFromUser(u))
	}
	return subscribers, nil
}

// DisableNotifications выключает уведомления пользователя
func (r *SubscriberRepository) DisableNotifications(ctx context.Context, id int64) error {
	return r.SetNotifications(ctx, id, false)
}

// SetNotifications включает или выключает уведомления пользователя.
// Для несуществующего пользователя возвращает model.ErrUserNotFound.
func (r *SubscriberRepository) SetNotifications(ctx context.Context, id int64, enabled bool) error {
	res, err := r.db.NewUpdate().
		Model((*model.User)(nil)).
		Set("is_notifies_enabled = ?", enabled).
		Set("modified_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return storeError("set notifications", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return storeError("set notifications", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d: %w", id, model.ErrUserNotFound)
	}

	r.logger.Debug("Notifications updated",
		zap.Int64("user_id", id),
		zap.Bool("enabled", enabled))
	return nil
}

// Get возвращает пользователя с группами или nil, если его нет
func (r *SubscriberRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	user := new(model.User)

	err := r.db.NewSelect().
		Model(user).
		Relation("Groups").
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError("get user", err)
	}

	return user, nil
}

// Register создает пользователя или обновляет его отображаемое имя
func (r *SubscriberRepository) Register(ctx context.Context, id int64, fullname string) (*model.User, error) {
	user := &model.User{
		ID:                 id,
		CachedFullname:     strings.TrimSpace(fullname),
		IsNotifiesEnabled:  true,
		IsBroadcastEnabled: true,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	_, err := r.db.NewInsert().
		Model(user).
		Column("id", "cached_fullname", "is_notifies_enabled", "is_broadcast_enabled").
		On("CONFLICT (id) DO UPDATE").
		Set("cached_fullname = EXCLUDED.cached_fullname").
		Set("modified_at = current_timestamp").
		Exec(ctx)
	if err != nil {
		return nil, storeError("register user", err)
	}

	return r.Get(ctx, id)
}

// AddGroup подписывает пользователя на группу
func (r *SubscriberRepository) AddGroup(ctx context.Context, id int64, group string) error {
	target := &model.TargetGroup{UserID: id, GroupName: strings.TrimSpace(group)}
	if err := target.Validate(); err != nil {
		return err
	}

	_, err := r.db.NewInsert().
		Model(target).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return storeError("add group", err)
	}
	return nil
}

// RemoveGroup отписывает пользователя от группы
func (r *SubscriberRepository) RemoveGroup(ctx context.Context, id int64, group string) error {
	_, err := r.db.NewDelete().
		Model((*model.TargetGroup)(nil)).
		Where("user_id = ?", id).
		Where("group_name = ?", strings.TrimSpace(group)).
		Exec(ctx)
	if err != nil {
		return storeError("remove group", err)
	}
	return nil
}
