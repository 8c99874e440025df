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

// LinkStore persists links. Uniqueness of short_code and custom_alias is
// owned by the table constraints, not by pre-insert existence checks.
type LinkStore struct {
	db         *DB
	bcryptCost int
}

func NewLinkStore(db *DB, bcryptCost int) *LinkStore {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &LinkStore{db: db, bcryptCost: bcryptCost}
}

// CreateLink inserts a new link as a single atomic insert. A supplied
// password is bcrypt-hashed here; the plaintext is never persisted or
// logged. Unique violations come back as ErrDuplicateCode or
// ErrDuplicateAlias.
func (s *LinkStore) CreateLink(ctx context.Context, shortCode string, spec *model.LinkSpec) (*model.Link, error) {
	var passwordHash sql.NullString
	if spec.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(spec.Password), s.bcryptCost)
		if err != nil {
			return nil, err
		}
		passwordHash = sql.NullString{String: string(hash), Valid: true}
	}

	link := &model.Link{
		ID:                uuid.New().String(),
		ShortCode:         shortCode,
		OriginalURL:       spec.OriginalURL,
		CustomAlias:       spec.CustomAlias,
		ExpiresAt:         spec.ExpiresAt,
		PasswordHash:      passwordHash.String,
		PlatformReference: spec.PlatformReference,
		UserID:            spec.UserID,
	}

	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	err := s.db.conn.QueryRowContext(ctx, `
		INSERT INTO urls (id, short_code, custom_alias, original_url, expires_at,
		                  password_hash, platform_reference, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		link.ID,
		link.ShortCode,
		nullIfEmpty(link.CustomAlias),
		link.OriginalURL,
		link.ExpiresAt,
		passwordHash,
		nullIfEmpty(link.PlatformReference),
		nullIfEmpty(link.UserID),
	).Scan(&link.CreatedAt)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}

	log.Info().
		Str("short_code", link.ShortCode).
		Str("original_url", link.OriginalURL).
		Bool("has_password", link.IsPasswordProtected()).
		Msg("Link created")
	return link, nil
}

// FindByCode returns the link for a short code, or ErrLinkNotFound.
func (s *LinkStore) FindByCode(ctx context.Context, shortCode string) (*model.Link, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	row := s.db.conn.QueryRowContext(ctx, `
		SELECT id, short_code, custom_alias, original_url, expires_at,
		       password_hash, click_count, platform_reference, user_id, created_at
		FROM urls WHERE short_code = $1`, shortCode)

	return scanLink(row)
}

// FindByUser returns the owner's links, newest first.
func (s *LinkStore) FindByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Link, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, short_code, custom_alias, original_url, expires_at,
		       password_hash, click_count, platform_reference, user_id, created_at
		FROM urls WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*model.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// IncrementClicks atomically adds one to the authoritative counter and
// returns the new value. Safe under concurrent redirects of the same link.
func (s *LinkStore) IncrementClicks(ctx context.Context, id string) (int64, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	var count int64
	err := s.db.conn.QueryRowContext(ctx, `
		UPDATE urls SET click_count = click_count + 1
		WHERE id = $1
		RETURNING click_count`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrLinkNotFound
	}
	return count, err
}

// DeleteLink removes the link. Cache invalidation is the caller's job and
// must happen synchronously with this call.
func (s *LinkStore) DeleteLink(ctx context.Context, id string) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM urls WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrLinkNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*model.Link, error) {
	var (
		link         model.Link
		customAlias  sql.NullString
		expiresAt    sql.NullTime
		passwordHash sql.NullString
		platformRef  sql.NullString
		userID       sql.NullString
	)

	err := row.Scan(&link.ID, &link.ShortCode, &customAlias, &link.OriginalURL,
		&expiresAt, &passwordHash, &link.ClickCount, &platformRef, &userID,
		&link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}

	link.CustomAlias = customAlias.String
	if expiresAt.Valid {
		t := expiresAt.Time
		link.ExpiresAt = &t
	}
	link.PasswordHash = passwordHash.String
	link.PlatformReference = platformRef.String
	link.UserID = userID.String
	return &link, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
