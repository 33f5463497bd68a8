package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avollmer/oauthd/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
    id, login, password_hash, active, created_at, updated_at, deleted_at
`

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, id)
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login = $1 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, login)
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	const query = `
        INSERT INTO users (id, login, password_hash, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,NOW(),NOW())
        RETURNING ` + userColumns + `
    `
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	var created model.User
	err := r.db.QueryRow(ctx, query, user.ID, user.Login, user.PasswordHash, user.Active).Scan(
		&created.ID, &created.Login, &created.PasswordHash, &created.Active,
		&created.CreatedAt, &created.UpdatedAt, &created.DeletedAt,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) scanOne(ctx context.Context, query string, args ...any) (model.User, error) {
	var user model.User
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID, &user.Login, &user.PasswordHash, &user.Active,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
