// Package model содержит модели подписчиков.
//
// Группа: ENTITIES - Основные сущности
// Содержит: User, TargetGroup, Subscriber, SubscriberRepository
package model

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// User представляет пользователя бота
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                 int64          `bun:"id,pk" json:"id"`
	CachedFullname     string         `bun:"cached_fullname,notnull,default:''" json:"cached_fullname"`
	IsNotifiesEnabled  bool           `bun:"is_notifies_enabled,notnull,default:true" json:"is_notifies_enabled"`
	IsBroadcastEnabled bool           `bun:"is_broadcast_enabled,notnull,default:true" json:"is_broadcast_enabled"`
	CreatedAt          time.Time      `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	ModifiedAt         time.Time      `bun:"modified_at,notnull,default:current_timestamp" json:"modified_at"`
	Groups             []*TargetGroup `bun:"rel:has-many,join:id=user_id" json:"groups,omitempty"`
}

// Validate проверяет валидность пользователя
func (u *User) Validate() error {
	var errors ValidationErrors

	if u.ID == 0 {
		errors = append(errors, ValidationError{Field: "id", Message: "is required"})
	}

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// GroupNames возвращает названия групп пользователя
func (u *User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		names = append(names, g.GroupName)
	}
	return names
}

// TargetGroup представляет подписку пользователя на группу
type TargetGroup struct {
	bun.BaseModel `bun:"table:target_groups,alias:tg"`

	UserID    int64  `bun:"user_id,pk" json:"user_id"`
	GroupName string `bun:"group_name,pk" json:"group_name"`
}

// Validate проверяет валидность подписки
func (t *TargetGroup) Validate() error {
	var errors ValidationErrors

	if t.UserID == 0 {
		errors = append(errors, ValidationError{Field: "user_id", Message: "is required"})
	}
	if err := ValidateRequired("group_name", t.GroupName); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// Subscriber представляет получателя уведомлений
type Subscriber struct {
	ID            int64
	Groups        []string
	NotifyEnabled bool
}

// SubscriberFromUser преобразует пользователя в подписчика
func SubscriberFromUser(u *User) Subscriber {
	return Subscriber{
		ID:            u.ID,
		Groups:        u.GroupNames(),
		NotifyEnabled: u.IsNotifiesEnabled,
	}
}

// SubscriberRepository определяет интерфейс для работы с подписчиками
type SubscriberRepository interface {
	ListNotifiable(ctx context.Context) ([]Subscriber, error)
	DisableNotifications(ctx context.Context, id int64) error
	SetNotifications(ctx context.Context, id int64, enabled bool) error
	Get(ctx context.Context, id int64) (*User, error)
	Register(ctx context.Context, id int64, fullname string) (*User, error)
	AddGroup(ctx context.Context, id int64, group string) error
	RemoveGroup(ctx context.Context, id int64, group string) error
}
