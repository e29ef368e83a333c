package batch

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// URLValidator knows if a user URL can be sent to the backend.
type URLValidator interface {
	ValidURL(rawURL string) bool
}

// URLValidatorFunc is a helper to create URLValidators from functions.
type URLValidatorFunc func(rawURL string) bool

// ValidURL satisfies URLValidator interface.
func (f URLValidatorFunc) ValidURL(rawURL string) bool { return f(rawURL) }

type httpURLValidator struct {
	validate *validator.Validate
}

// NewHTTPURLValidator returns a validator that only accepts absolute http(s) URLs.
func NewHTTPURLValidator() URLValidator {
	return httpURLValidator{validate: validator.New()}
}

func (h httpURLValidator) ValidURL(rawURL string) bool {
	rawURL = strings.TrimSpace(rawURL)
	if err := h.validate.Var(rawURL, "required,url"); err != nil {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
