// Package resolver orchestrates the cache-aside lookup protocol between
// the Redis cache layer and the authoritative store, layers the per-link
// policy checks (expiry, password) on top of it, and schedules click
// accounting off the response path.
package resolver

import (
	"context"
	"errors"
	"time"

	"short-link-service/cache"
	"short-link-service/model"
	"short-link-service/shortcode"
	"short-link-service/store"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound covers both absent and expired links. The two are
	// indistinguishable to callers so that resolution cannot be used as
	// an existence oracle.
	ErrNotFound = errors.New("link not found")

	// ErrPasswordRequired means the link is protected and no password
	// was supplied; distinct from a wrong password so clients can prompt.
	ErrPasswordRequired = errors.New("password required")

	ErrWrongPassword = errors.New("invalid password")

	ErrAccessDenied = errors.New("access denied")

	ErrMaxRetries = errors.New("failed to generate a unique short code after maximum retries")
)

// LinkStore is the slice of the store the engine needs.
type LinkStore interface {
	CreateLink(ctx context.Context, shortCode string, spec *model.LinkSpec) (*model.Link, error)
	FindByCode(ctx context.Context, shortCode string) (*model.Link, error)
	IncrementClicks(ctx context.Context, id string) (int64, error)
	DeleteLink(ctx context.Context, id string) error
}

// Engine is the resolution engine. It holds the shared store and cache
// handles; all methods are safe for concurrent use.
type Engine struct {
	store      LinkStore
	cache      *cache.Cache
	generator  *shortcode.Generator
	maxRetries int

	// asyncTimeout bounds detached cache write-backs and click-accounting
	// writes so a slow dependency cannot pile up goroutines.
	asyncTimeout time.Duration
}

func New(linkStore LinkStore, cacheLayer *cache.Cache, generator *shortcode.Generator, maxRetries int) *Engine {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Engine{
		store:        linkStore,
		cache:        cacheLayer,
		generator:    generator,
		maxRetries:   maxRetries,
		asyncTimeout: 5 * time.Second,
	}
}

// Resolve runs one resolution request: cache lookup, store fallback,
// policy checks, then detached click accounting. On success it returns
// the destination URL for the caller to redirect to.
func (e *Engine) Resolve(ctx context.Context, shortCode, password string) (string, error) {
	projection := e.cache.GetURL(ctx, shortCode)

	var link *model.Link
	if projection == nil {
		var err error
		link, err = e.store.FindByCode(ctx, shortCode)
		if errors.Is(err, store.ErrLinkNotFound) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", err
		}

		projection = model.NewProjection(link)

		// Write-back happens off the request path; a failed cache write
		// must never fail the resolution.
		go e.writeBack(shortCode, projection)
	}

	// Expired links answer exactly like absent ones.
	if projection.Expired() {
		return "", ErrNotFound
	}

	if projection.HasPassword {
		// The projection never carries the hash, so a protected link
		// always costs one store read even on a cache hit.
		if link == nil {
			var err error
			link, err = e.store.FindByCode(ctx, shortCode)
			if errors.Is(err, store.ErrLinkNotFound) {
				// Deleted after being cached; the stale entry loses.
				return "", ErrNotFound
			}
			if err != nil {
				return "", err
			}
		}

		if password == "" {
			return "", ErrPasswordRequired
		}
		if bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(password)) != nil {
			return "", ErrWrongPassword
		}
	}

	go e.recordClick(shortCode, projection.ID)

	return projection.OriginalURL, nil
}

// Create validates nothing itself; it takes an already validated spec,
// enforces uniqueness through the store and primes the cache. Generated
// codes retry on collision, user aliases fail fast with the duplicate
// error for the caller to surface.
func (e *Engine) Create(ctx context.Context, spec *model.LinkSpec) (*model.Link, error) {
	var link *model.Link

	if spec.CustomAlias != "" {
		var err error
		link, err = e.store.CreateLink(ctx, spec.CustomAlias, spec)
		if errors.Is(err, store.ErrDuplicateCode) {
			// The alias is stored as the short code, so a collision trips
			// the short_code constraint. To the caller it is their alias
			// that is taken.
			return nil, store.ErrDuplicateAlias
		}
		if err != nil {
			return nil, err
		}
	} else {
		for attempt := 0; ; attempt++ {
			code, err := e.generator.Generate()
			if err != nil {
				return nil, err
			}

			link, err = e.store.CreateLink(ctx, code, spec)
			if err == nil {
				break
			}
			if !errors.Is(err, store.ErrDuplicateCode) {
				return nil, err
			}

			log.Warn().Str("short_code", code).Int("attempt", attempt+1).
				Msg("Short code collision, retrying")
			if attempt+1 >= e.maxRetries {
				return nil, ErrMaxRetries
			}
		}
	}

	e.cache.PutURL(ctx, link.ShortCode, model.NewProjection(link), e.cache.URLTTL(ctx, link.ShortCode))
	return link, nil
}

// Delete removes an owned link and synchronously invalidates its cache
// entry. TTL expiry is not acceptable here: a deleted link must become
// unresolvable immediately, stale cache or not.
func (e *Engine) Delete(ctx context.Context, shortCode, userID string) error {
	link, err := e.store.FindByCode(ctx, shortCode)
	if errors.Is(err, store.ErrLinkNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if link.UserID != userID {
		return ErrAccessDenied
	}

	if err := e.store.DeleteLink(ctx, link.ID); err != nil {
		if errors.Is(err, store.ErrLinkNotFound) {
			return ErrNotFound
		}
		return err
	}

	e.cache.InvalidateURL(ctx, shortCode)

	log.Info().Str("short_code", shortCode).Msg("Link deleted")
	return nil
}

func (e *Engine) writeBack(shortCode string, p *model.Projection) {
	ctx, cancel := context.WithTimeout(context.Background(), e.asyncTimeout)
	defer cancel()

	e.cache.PutURL(ctx, shortCode, p, e.cache.URLTTL(ctx, shortCode))
}

// recordClick advances the authoritative counter and the ephemeral display
// counter. Fire-and-forget: failures are logged and dropped, never retried,
// and never add latency to the redirect.
func (e *Engine) recordClick(shortCode, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.asyncTimeout)
	defer cancel()

	if _, err := e.store.IncrementClicks(ctx, id); err != nil {
		log.Warn().Err(err).Str("short_code", shortCode).Msg("Click accounting failed")
	}
	e.cache.IncrementClicks(ctx, shortCode)
}
