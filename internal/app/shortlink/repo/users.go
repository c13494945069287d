package repo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

const userColumns = `id, name, email, password_hash, is_active, created_at, updated_at`

type UsersRepo struct {
	db *pgxpool.Pool
}

func NewUsersRepo(db *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{db: db}
}

func (u *UsersRepo) InsertUser(ctx context.Context, user shortlink.User) (shortlink.User, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	row := u.db.QueryRow(dbctx, `
INSERT INTO users (id, name, email, password_hash, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+userColumns,
		user.ID, user.Name, user.Email, user.PasswordHash, user.IsActive, user.CreatedAt, user.UpdatedAt)
	saved, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return shortlink.User{}, &shortlink.EmailConflictError{Email: user.Email}
		}
		slog.Error("insert user failed", "err", err)
		return shortlink.User{}, err
	}
	return saved, nil
}

func (u *UsersRepo) FindUserByEmail(ctx context.Context, email string) (shortlink.User, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return u.findOne(dbctx, `SELECT `+userColumns+` FROM users WHERE email=$1 LIMIT 1`, email)
}

func (u *UsersRepo) FindUserByID(ctx context.Context, id string) (shortlink.User, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return u.findOne(dbctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (u *UsersRepo) findOne(ctx context.Context, query string, arg string) (shortlink.User, error) {
	user, err := scanUser(u.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shortlink.User{}, shortlink.ErrUserNotFound
		}
		slog.Error("find user failed", "err", err)
		return shortlink.User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (shortlink.User, error) {
	var user shortlink.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}
