package entities

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared; building a validator per call is expensive.
var validate = newValidator()

var sha256Hex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hashspec", func(fl validator.FieldLevel) bool {
		return ValidHash(fl.Field().String())
	})
	return v
}

// ValidHash reports whether h is a well-formed "sha256:<hex>" pin.
func ValidHash(h string) bool {
	if !strings.HasPrefix(h, HashPrefix) {
		return false
	}
	return sha256Hex.MatchString(strings.TrimPrefix(h, HashPrefix))
}

// ValidationResult represents the outcome of validating a policy document.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError represents a specific validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (r *ValidationResult) add(field, msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: msg})
}

// Validate checks struct-level rules and the domain entry syntax.
// Invalid entries never widen the policy, they only fail to match, so
// callers usually report the result rather than reject the document.
func (c *PermissionConfig) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			result.add("", err.Error())
			return result
		}
		for _, fe := range verrs {
			result.add(fe.Namespace(), describeFieldError(fe))
		}
	}

	for i, d := range c.AllowDomains {
		if _, _, err := SplitDomainEntry(d); err != nil {
			result.add(fmt.Sprintf("%s[%d]", CategoryDomains, i), err.Error())
		}
	}
	return result
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "hashspec":
		return fmt.Sprintf("%q is not a sha256:<64 hex> hash", fe.Value())
	case "required":
		return "value is required"
	case "oneof":
		return fmt.Sprintf("%v is not one of %s", fe.Value(), fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// SplitDomainEntry splits "host" or "host:port". Port is 0 when absent. The
// host is lowercased and a trailing root dot is dropped.
func SplitDomainEntry(entry string) (host string, port int, err error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return "", 0, errors.New("empty domain")
	}
	// Bracketed IPv6 literal, optionally with a port.
	if strings.HasPrefix(entry, "[") {
		end := strings.Index(entry, "]")
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated IPv6 literal %q", entry)
		}
		host = entry[1:end]
		rest := entry[end+1:]
		if rest == "" {
			return host, 0, nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", 0, fmt.Errorf("invalid domain %q", entry)
		}
		port, err = parsePort(rest[1:])
		return host, port, err
	}
	if strings.Count(entry, ":") != 1 {
		host = canonicalHost(entry)
	} else {
		i := strings.LastIndex(entry, ":")
		port, err = parsePort(entry[i+1:])
		if err != nil {
			return "", 0, fmt.Errorf("invalid domain %q: %w", entry, err)
		}
		host = canonicalHost(entry[:i])
	}
	if host == "" {
		return "", 0, fmt.Errorf("invalid domain %q", entry)
	}
	return host, port, nil
}

func canonicalHost(h string) string {
	return strings.TrimSuffix(strings.ToLower(h), ".")
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p <= 0 || p > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return p, nil
}
