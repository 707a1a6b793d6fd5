// Package validation provides input validation functions.
package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrNameTooShort is returned when a display name is under 2 characters.
	ErrNameTooShort = errors.New("name must be at least 2 characters")
	// ErrNameTooLong is returned when a display name exceeds 100 characters.
	ErrNameTooLong = errors.New("name must be at most 100 characters")

	// ErrEmailInvalid is returned when an email address is malformed.
	ErrEmailInvalid = errors.New("email address is not valid")

	// ErrPasswordTooShort is returned when a password is under 8 characters.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when a password exceeds 72 bytes (the bcrypt limit).
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")

	// ErrPlatformEmpty is returned when an entry's platform label is empty.
	ErrPlatformEmpty = errors.New("platform is required")
	// ErrPlatformTooLong is returned when a platform label exceeds 100 characters.
	ErrPlatformTooLong = errors.New("platform must be at most 100 characters")

	// ErrUsernameEmpty is returned when an entry's username is empty.
	ErrUsernameEmpty = errors.New("username is required")
	// ErrUsernameTooLong is returned when an entry's username exceeds 255 characters.
	ErrUsernameTooLong = errors.New("username must be at most 255 characters")

	// ErrSecretEmpty is returned when an entry's secret is empty.
	ErrSecretEmpty = errors.New("password is required")

	// ErrURLInvalid is returned when an entry URL is present but malformed.
	ErrURLInvalid = errors.New("url is not valid")
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Name validates a user's display name. Rules: 2-100 characters.
func Name(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return ErrNameTooShort
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	return nil
}

// Email validates an email address.
func Email(email string) error {
	if len(email) > 254 || !emailRegex.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// Password validates an account password. Rules: 8-72 characters.
// These are login credentials; stored vault secrets have no policy.
func Password(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

// Platform validates a vault entry's platform label. Rules: 1-100 characters.
func Platform(platform string) error {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return ErrPlatformEmpty
	}
	if len(platform) > 100 {
		return ErrPlatformTooLong
	}
	return nil
}

// EntryUsername validates a vault entry's username. Rules: 1-255 characters.
func EntryUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrUsernameEmpty
	}
	if len(username) > 255 {
		return ErrUsernameTooLong
	}
	return nil
}

// Secret validates a vault entry's secret. Rules: non-empty.
func Secret(secret string) error {
	if secret == "" {
		return ErrSecretEmpty
	}
	return nil
}

// EntryURL validates a vault entry's URL. Empty is allowed (the field is
// optional); anything else must parse as an absolute http(s) URL.
func EntryURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrURLInvalid
	}
	return nil
}
