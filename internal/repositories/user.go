package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
	"github.com/myrjola/manuscript/internal/sqlite"
)

type UserRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewUserRepository(dbs *sqlite.Database, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		dbs:    dbs,
		logger: logger.With("source", "UserRepository"),
	}
}

const selectUser = `SELECT id, email, display_name, password_hash, created_at FROM users`

// Create inserts a user. Returns models.ErrConflict if the email is already registered.
func (r *UserRepository) Create(
	ctx context.Context,
	email string,
	displayName string,
	passwordHash string,
) (*models.User, error) {
	var user models.User
	id := uuid.NewString()
	err := r.dbs.WithinTx(ctx, func(tx *sqlx.Tx) error {
		stmt := `INSERT INTO users (id, email, display_name, password_hash) VALUES (?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, stmt, id, email, displayName, passwordHash); err != nil {
			if isUniqueViolation(err) {
				return errors.Wrap(models.ErrConflict, "email already registered")
			}
			return errors.Wrap(err, "insert user")
		}
		if err := tx.GetContext(ctx, &user, selectUser+` WHERE id = ?`, id); err != nil {
			return errors.Wrap(err, "read created user")
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "create user", slog.String("email", email))
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "user created", slog.String("user_id", user.ID))
	return &user, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, selectUser+` WHERE id = ?`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, selectUser+` WHERE email = ?`, email)
}

// Exists reports whether a user with the id exists.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.dbs.ReadOnly.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id); err != nil {
		return false, errors.Wrap(err, "query user exists")
	}
	return exists, nil
}

func (r *UserRepository) get(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.dbs.ReadOnly.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(models.ErrNotFound, "user not found")
		}
		return nil, errors.Wrap(err, "query user")
	}
	return &user, nil
}
