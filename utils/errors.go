package utils

import "errors"

var (
	ErrEmptyURL        = errors.New("URL cannot be empty")
	ErrInvalidURL      = errors.New("invalid URL format")
	ErrInvalidScheme   = errors.New("URL scheme must be http or https")
	ErrEmptyHost       = errors.New("URL host cannot be empty")
	ErrURLTooLong      = errors.New("URL is too long")
	ErrAliasTooShort   = errors.New("custom alias must be at least 3 characters long")
	ErrAliasTooLong    = errors.New("custom alias must be at most 50 characters long")
	ErrAliasFormat     = errors.New("custom alias may contain only letters, digits, hyphens and underscores")
	ErrAliasEdges      = errors.New("custom alias must start and end with a letter or digit")
	ErrAliasNumeric    = errors.New("custom alias cannot consist of digits only")
	ErrAliasReserved   = errors.New("custom alias is reserved")
	ErrExpiryInPast    = errors.New("expiration date must be in the future")
	ErrPasswordLength  = errors.New("password must be between 4 and 50 characters long")
	ErrPlatformTooLong = errors.New("platform reference must be at most 100 characters long")
)
