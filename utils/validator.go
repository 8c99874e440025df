package utils

import (
	"net/url"
	"regexp"
	"unicode"
)

const (
	maxURLLength      = 2048
	minAliasLength    = 3
	maxAliasLength    = 50
	minPasswordLength = 4
	maxPasswordLength = 50
	maxPlatformLength = 100
)

var (
	aliasFormat = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$`)
	pureNumber  = regexp.MustCompile(`^[0-9]+$`)
)

// reservedAliases are path segments already claimed by routes; an alias that
// shadows one of them would be unreachable.
var reservedAliases = map[string]bool{
	"api":     true,
	"health":  true,
	"qr":      true,
	"shorten": true,
	"urls":    true,
	"auth":    true,
	"static":  true,
}

// ValidateURL checks that the destination is a well-formed absolute
// http(s) URL within the length bound.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return ErrEmptyURL
	}
	if len(rawURL) > maxURLLength {
		return ErrURLTooLong
	}

	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidScheme
	}
	if parsed.Host == "" {
		return ErrEmptyHost
	}
	return nil
}

// ValidateAlias checks a caller-chosen short code.
// Rules:
// - 3-50 characters
// - letters, digits, hyphens, underscores
// - must start and end with a letter or digit
// - cannot be all digits (avoids conflicts with numeric ID routes)
// - cannot shadow a reserved route word
func ValidateAlias(alias string) error {
	if len(alias) < minAliasLength {
		return ErrAliasTooShort
	}
	if len(alias) > maxAliasLength {
		return ErrAliasTooLong
	}

	first := rune(alias[0])
	last := rune(alias[len(alias)-1])
	if !unicode.IsLetter(first) && !unicode.IsDigit(first) {
		return ErrAliasEdges
	}
	if !unicode.IsLetter(last) && !unicode.IsDigit(last) {
		return ErrAliasEdges
	}

	if !aliasFormat.MatchString(alias) {
		return ErrAliasFormat
	}
	if pureNumber.MatchString(alias) {
		return ErrAliasNumeric
	}
	if IsReservedAlias(alias) {
		return ErrAliasReserved
	}
	return nil
}

// IsReservedAlias reports whether the alias collides with a routed path.
func IsReservedAlias(alias string) bool {
	return reservedAliases[alias]
}

// ValidateLinkPassword checks the optional per-link password bounds.
func ValidateLinkPassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrPasswordLength
	}
	return nil
}

// ValidatePlatformReference checks the optional platform tag bound.
func ValidatePlatformReference(ref string) error {
	if len(ref) > maxPlatformLength {
		return ErrPlatformTooLong
	}
	return nil
}
