// Package domain defines the core interfaces and types for Shrike.
package domain

import (
	"strings"
	"unicode"
)

// IdentifierKind distinguishes phone numbers from message text.
type IdentifierKind int

const (
	// KindNumber is a phone number identifier.
	KindNumber IdentifierKind = iota

	// KindText is a raw message body identifier.
	KindText
)

// Identifier is a normalized phone number or raw message text subject to
// screening. Immutable once created.
type Identifier struct {
	// Raw is the input exactly as received from the host.
	Raw string `json:"raw"`

	// Normalized is the canonical form: digits only for numbers
	// (international 00-prefix collapsed to digits), lowercased text for
	// messages.
	Normalized string `json:"normalized"`

	// Kind indicates whether this is a number or message text.
	Kind IdentifierKind `json:"kind"`
}

// NormalizeNumber produces the canonical identifier for a phone number.
// Normalization is total: malformed input yields a best-effort digits-only
// form, never an error.
func NormalizeNumber(raw string) Identifier {
	var b strings.Builder
	b.Grow(len(raw))

	s := strings.TrimSpace(raw)
	// A leading + is the international prefix; canonical form uses 00.
	if strings.HasPrefix(s, "+") {
		b.WriteString("00")
		s = s[1:]
	}
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	return Identifier{
		Raw:        raw,
		Normalized: b.String(),
		Kind:       KindNumber,
	}
}

// NormalizeText produces the canonical identifier for message text.
func NormalizeText(raw string) Identifier {
	return Identifier{
		Raw:        raw,
		Normalized: strings.ToLower(strings.TrimSpace(raw)),
		Kind:       KindText,
	}
}

// IsInternational reports whether the normalized number carries the 00
// international dialing prefix.
func (id Identifier) IsInternational() bool {
	return id.Kind == KindNumber && strings.HasPrefix(id.Normalized, "00")
}

// CountryCode returns up to the first three digits after the international
// prefix, or "" for domestic numbers.
func (id Identifier) CountryCode() string {
	if !id.IsInternational() {
		return ""
	}
	rest := id.Normalized[2:]
	if len(rest) > 3 {
		rest = rest[:3]
	}
	return rest
}
