// Package credential parses the two credential shapes accepted by the
// integration layer: a bare API key, and a compound client-credentials pair.
// Parsing is pure validation; it happens before any request is attempted so
// malformed input never costs a request slot.
package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/fabotse/tdec-prospect-sub000/internal/apierror"
)

// Kind discriminates the credential union.
type Kind int

const (
	KindAPIKey Kind = iota
	KindClientCredentials
)

// Credential is an immutable, validated provider credential.
type Credential struct {
	kind   Kind
	key    string
	id     string
	secret string
}

// ParseAPIKey validates a single-value API key. The raw value must contain at
// least one non-whitespace character.
func ParseAPIKey(provider, raw string) (Credential, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return Credential{}, apierror.New(apierror.KindCredential, provider, "API key is empty")
	}

	return Credential{kind: KindAPIKey, key: key}, nil
}

// ParseClientCredentials validates an "id:secret" pair. Exactly one separator
// is required and both halves must be non-empty after trimming.
func ParseClientCredentials(provider, raw string) (Credential, error) {
	if strings.Count(raw, ":") != 1 {
		return Credential{}, apierror.New(apierror.KindCredential, provider,
			"client credentials must be a single id:secret pair")
	}

	id, secret, _ := strings.Cut(raw, ":")
	id = strings.TrimSpace(id)
	secret = strings.TrimSpace(secret)
	if id == "" || secret == "" {
		return Credential{}, apierror.New(apierror.KindCredential, provider,
			"client credentials id and secret must both be present")
	}

	return Credential{kind: KindClientCredentials, id: id, secret: secret}, nil
}

func (c Credential) Kind() Kind { return c.kind }

// Key returns the API key for KindAPIKey credentials.
func (c Credential) Key() string { return c.key }

// ID returns the client ID for KindClientCredentials credentials.
func (c Credential) ID() string { return c.id }

// Secret returns the client secret for KindClientCredentials credentials.
func (c Credential) Secret() string { return c.secret }

// Fingerprint derives a non-secret cache key for the credential. Changing any
// part of the credential changes the fingerprint, which is what invalidates
// cached tokens when a tenant rotates their keys.
func (c Credential) Fingerprint() string {
	h := sha256.New()
	switch c.kind {
	case KindClientCredentials:
		h.Write([]byte("cc\x00"))
		h.Write([]byte(c.id))
		h.Write([]byte{0})
		h.Write([]byte(c.secret))
	default:
		h.Write([]byte("key\x00"))
		h.Write([]byte(c.key))
	}

	return hex.EncodeToString(h.Sum(nil)[:16])
}
