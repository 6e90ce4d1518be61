package core

import "strings"

// Secret wraps a credential value so accidental logging or formatting only
// ever shows a masked form. The raw value is available via Reveal and is
// handed to provider SDK clients only.
type Secret string

// Reveal returns the raw credential value.
func (s Secret) Reveal() string { return string(s) }

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool { return s == "" }

// Masked returns the value with all but a short prefix and suffix replaced.
// Values too short to mask safely are fully redacted.
func (s Secret) Masked() string {
	v := string(s)
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + "..." + v[len(v)-4:]
}

// String implements fmt.Stringer with the masked form.
func (s Secret) String() string { return s.Masked() }

// GoString keeps %#v output masked as well.
func (s Secret) GoString() string { return s.Masked() }

// MarshalText ensures serialized forms (logs, JSON, YAML) stay masked.
func (s Secret) MarshalText() ([]byte, error) { return []byte(s.Masked()), nil }

// UnmarshalText accepts the raw credential when decoding configuration.
func (s *Secret) UnmarshalText(b []byte) error {
	*s = Secret(b)
	return nil
}
