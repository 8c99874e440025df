package store

import (
	"context"
	"database/sql"
	"errors"

	"short-link-service/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserStore persists accounts for the authentication collaborator.
type UserStore struct {
	db         *DB
	bcryptCost int
}

func NewUserStore(db *DB, bcryptCost int) *UserStore {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserStore{db: db, bcryptCost: bcryptCost}
}

// CreateUser inserts a new account with a bcrypt-hashed password.
func (s *UserStore) CreateUser(ctx context.Context, username, email, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	err = s.db.conn.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		user.ID, user.Username, user.Email, user.PasswordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}

	log.Info().Str("username", username).Msg("User registered")
	return user, nil
}

// FindByUsername returns the account, or ErrUserNotFound.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	return scanUser(s.db.conn.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE username = $1`, username))
}

// FindByID returns the account, or ErrUserNotFound.
func (s *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	return scanUser(s.db.conn.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = $1`, id))
}

// VerifyPassword compares a plaintext candidate against the stored hash.
func (s *UserStore) VerifyPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
