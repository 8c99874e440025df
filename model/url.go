package model

import "time"

// Link is the authoritative record of a short URL. The store owns every
// field here; click_count in particular is only ever advanced by the store.
type Link struct {
	ID                string     `json:"id"`
	ShortCode         string     `json:"short_code"`
	OriginalURL       string     `json:"original_url"`
	CustomAlias       string     `json:"custom_alias,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	PasswordHash      string     `json:"-"`
	ClickCount        int64      `json:"click_count"`
	PlatformReference string     `json:"platform_reference,omitempty"`
	UserID            string     `json:"user_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// IsExpired reports whether the link has an expiry in the past.
func (l *Link) IsExpired() bool {
	return l.ExpiresAt != nil && time.Now().After(*l.ExpiresAt)
}

// IsPasswordProtected reports whether a password must be verified before
// the destination is revealed.
func (l *Link) IsPasswordProtected() bool {
	return l.PasswordHash != ""
}

// Projection is the denormalized cache view of a Link. It deliberately
// carries only a has_password flag instead of the hash itself, so password
// verification always goes back to the store.
type Projection struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"original_url"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	HasPassword bool       `json:"has_password"`
}

// NewProjection builds the cacheable view of a link.
func NewProjection(l *Link) *Projection {
	return &Projection{
		ID:          l.ID,
		OriginalURL: l.OriginalURL,
		ExpiresAt:   l.ExpiresAt,
		HasPassword: l.IsPasswordProtected(),
	}
}

// Expired reports whether the projected link has an expiry in the past.
func (p *Projection) Expired() bool {
	return p.ExpiresAt != nil && time.Now().After(*p.ExpiresAt)
}

// LinkSpec carries the validated inputs for creating a link. Password is
// plaintext here and is hashed by the store before anything is persisted.
type LinkSpec struct {
	OriginalURL       string
	CustomAlias       string
	ExpiresAt         *time.Time
	Password          string
	PlatformReference string
	UserID            string
}
