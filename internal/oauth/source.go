// Package oauth implements the client-credentials token flow used by
// providers that do not accept a long-lived API key. Tokens are cached per
// credential fingerprint so consecutive calls for the same tenant perform a
// single exchange, and a rotated credential naturally misses the cache.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/apierror"
	"github.com/fabotse/tdec-prospect-sub000/internal/cache"
	"github.com/fabotse/tdec-prospect-sub000/internal/credential"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// expiryMargin refreshes tokens slightly early so a token never expires
	// mid-batch.
	expiryMargin = 5 * time.Minute

	// defaultValidity applies when the token endpoint omits expires_in.
	defaultValidity = 55 * time.Minute

	// cacheTTL is an upper bound only; entry expiry is governed by the
	// token's own ExpiresAt.
	cacheTTL = 24 * time.Hour

	cacheSize = 10_000
)

// Token is a cached bearer token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) expiringSoon(now time.Time) bool {
	return now.After(t.ExpiresAt.Add(-expiryMargin))
}

// Source exchanges and caches bearer tokens for one provider's token
// endpoint. A single Source serves all tenants: entries are keyed by
// credential fingerprint, never by the raw secret.
type Source struct {
	provider string
	tokenURL string
	client   *http.Client
	tokens   cache.Store[Token]
	now      func() time.Time
}

// NewSource creates a token source for the given provider token endpoint.
// The client carries the instrumented transport shared with the executors; a
// nil client lets the oauth2 package use its default.
func NewSource(provider, tokenURL string, client *http.Client) (*Source, error) {
	tokens, err := cache.NewMemory[Token](cacheTTL, cacheSize)
	if err != nil {
		return nil, fmt.Errorf("token cache configuration failed: %w", err)
	}

	return &Source{
		provider: provider,
		tokenURL: tokenURL,
		client:   client,
		tokens:   tokens,
		now:      time.Now,
	}, nil
}

// Bearer returns a valid bearer token for the credential, exchanging only on
// cache miss or near-expiry.
func (s *Source) Bearer(ctx context.Context, cred credential.Credential) (string, error) {
	key := cred.Fingerprint()

	cached, found, err := s.tokens.Get(ctx, key)
	if err == nil && found && !cached.expiringSoon(s.now()) {
		return cached.Value, nil
	}

	return s.exchange(ctx, cred)
}

// Invalidate drops the cached token for the credential.
func (s *Source) Invalidate(ctx context.Context, cred credential.Credential) {
	if err := s.tokens.Invalidate(ctx, cred.Fingerprint()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("token cache invalidation failed")
	}
}

// WithRetry runs fn with a cached token. If fn fails with Unauthorized, the
// token is discarded, exchanged afresh, and fn runs exactly once more before
// the error propagates.
func (s *Source) WithRetry(ctx context.Context, cred credential.Credential, fn func(ctx context.Context, bearer string) error) error {
	bearer, err := s.Bearer(ctx, cred)
	if err != nil {
		return err
	}

	err = fn(ctx, bearer)
	if !apierror.IsKind(err, apierror.KindUnauthorized) {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("provider", s.provider).
		Msg("token rejected, forcing fresh exchange")

	s.Invalidate(ctx, cred)
	bearer, exchangeErr := s.exchange(ctx, cred)
	if exchangeErr != nil {
		return exchangeErr
	}

	return fn(ctx, bearer)
}

func (s *Source) exchange(ctx context.Context, cred credential.Credential) (string, error) {
	cfg := clientcredentials.Config{
		ClientID:     cred.ID(),
		ClientSecret: cred.Secret(),
		TokenURL:     s.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	if s.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		return "", s.translateExchangeError(err)
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(defaultValidity)
	}

	entry := Token{Value: tok.AccessToken, ExpiresAt: expiresAt}
	if err := s.tokens.Set(ctx, cred.Fingerprint(), entry); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("token cache store failed")
	}

	zerolog.Ctx(ctx).Debug().
		Str("provider", s.provider).
		Time("expiresAt", expiresAt).
		Msg("token exchanged")

	return entry.Value, nil
}

func (s *Source) translateExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return apierror.FromStatus(s.provider, retrieveErr.Response.StatusCode, retrieveErr.Body)
	}
	return apierror.Classify(s.provider, err)
}
