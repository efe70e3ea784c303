package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mediaconv/internal/config"
	"mediaconv/internal/services"
)

// Source names where the active token came from.
type Source string

const (
	SourceNone      Source = "none"
	SourceConfig    Source = "configuration"
	SourceTokenFile Source = "token file"
)

// Provider resolves the bearer token for each request. It implements
// apiclient.TokenSource.
type Provider struct {
	inline string
	store  TokenStore
}

// NewProvider builds a Provider from an inline token and a store; either may
// be empty.
func NewProvider(inline string, store TokenStore) *Provider {
	return &Provider{inline: strings.TrimSpace(inline), store: store}
}

// FromConfig builds a Provider for the configured token and token file.
func FromConfig(cfg *config.Config) (*Provider, error) {
	if cfg == nil {
		return nil, errors.New("auth: config is nil")
	}
	return NewProvider(cfg.Auth.Token, NewFileTokenStore(cfg.Auth.TokenFile)), nil
}

// Token returns the active bearer token or services.ErrUnauthenticated.
func (p *Provider) Token(ctx context.Context) (string, error) {
	token, _, err := p.Resolve(ctx)
	return token, err
}

// Resolve returns the token together with where it came from.
func (p *Provider) Resolve(ctx context.Context) (string, Source, error) {
	if err := ctx.Err(); err != nil {
		return "", SourceNone, err
	}
	if p.inline != "" {
		return p.inline, SourceConfig, nil
	}
	if p.store != nil {
		cred, err := p.store.Load()
		if err != nil {
			return "", SourceNone, fmt.Errorf("%w: %w", services.ErrUnauthenticated, err)
		}
		if cred.Token != "" {
			return cred.Token, SourceTokenFile, nil
		}
	}
	return "", SourceNone, services.ErrUnauthenticated
}

// Mask shortens a token for display.
func Mask(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", 4) + token[len(token)-4:]
}
