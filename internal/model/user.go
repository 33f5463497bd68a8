package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for resource owners.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByLogin(ctx context.Context, login string) (User, error)
	Create(ctx context.Context, user User) (User, error)
}

// User represents a stored resource owner with authentication material.
type User struct {
	ID           uuid.UUID
	Login        string
	PasswordHash []byte
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}
