// Package upi parses virtual payment addresses of the form username@domain.
package upi

import (
	"strings"
	"unicode/utf8"
)

// Separator splits the username from the issuer domain.
const Separator = "@"

// Length limits count characters, not bytes.
const (
	minUsernameLen = 3
	minDomainLen   = 2
)

// Validation messages surfaced to callers verbatim.
const (
	MsgInvalidFormat    = "Invalid UPI ID format"
	MsgSeparatorCount   = "UPI ID must contain exactly one @ symbol"
	MsgUsernameTooShort = "Username must be at least 3 characters"
	MsgDomainRequired   = "Domain is required"
)

// FormatError reports a structurally malformed identifier.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string {
	return e.Message
}

// ParsedAddress is a structurally valid identifier split at the separator.
// Both parts keep their original case.
type ParsedAddress struct {
	Username string `json:"username"`
	Domain   string `json:"domain"`
}

// String reassembles the address.
func (a ParsedAddress) String() string {
	return a.Username + Separator + a.Domain
}

// Parse validates raw and splits it into username and domain. Checks run in a
// fixed order and the first failure is returned.
func Parse(raw string) (ParsedAddress, error) {
	if raw == "" {
		return ParsedAddress{}, &FormatError{Message: MsgInvalidFormat}
	}

	parts := strings.Split(raw, Separator)
	if len(parts) != 2 {
		return ParsedAddress{}, &FormatError{Message: MsgSeparatorCount}
	}

	username, domain := parts[0], parts[1]

	if utf8.RuneCountInString(username) < minUsernameLen {
		return ParsedAddress{}, &FormatError{Message: MsgUsernameTooShort}
	}

	if utf8.RuneCountInString(domain) < minDomainLen {
		return ParsedAddress{}, &FormatError{Message: MsgDomainRequired}
	}

	return ParsedAddress{Username: username, Domain: domain}, nil
}

// ParseValue is Parse for untyped input such as a decoded JSON field.
// Anything that is not a string is rejected as an invalid format.
func ParseValue(v interface{}) (ParsedAddress, error) {
	s, ok := v.(string)
	if !ok {
		return ParsedAddress{}, &FormatError{Message: MsgInvalidFormat}
	}
	return Parse(s)
}

// Validate reports only whether raw parses.
func Validate(raw string) error {
	_, err := Parse(raw)
	return err
}
