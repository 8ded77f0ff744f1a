// Package auth obtains and persists the OAuth credential used to read mail.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// AuthError is a failure to load, refresh or obtain a credential.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Prompt shows the consent URL and returns the authorization code.
type Prompt func(ctx context.Context, authURL string) (string, error)

// LoadOAuthConfig reads the OAuth client secret file with read-only scope.
func LoadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, &AuthError{Op: "read client secret", Err: err}
	}
	cfg, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, &AuthError{Op: "parse client secret", Err: err}
	}
	return cfg, nil
}

// Provider hands out a valid credential, refreshing or asking for consent
// as needed and persisting every new token.
type Provider struct {
	config *oauth2.Config
	store  TokenStore
	prompt Prompt
}

// NewProvider returns a provider for config backed by store.
func NewProvider(config *oauth2.Config, store TokenStore, prompt Prompt) *Provider {
	return &Provider{config: config, store: store, prompt: prompt}
}

// Token returns a valid token. A stored token that expired is refreshed
// once; without a usable token the consent flow runs.
func (p *Provider) Token(ctx context.Context) (*oauth2.Token, error) {
	tok, err := p.store.Load()
	switch {
	case errors.Is(err, ErrNoToken):
		tok = nil
	case err != nil:
		log.Printf("Auth: ignoring unreadable stored token: %v", err)
		tok = nil
	}

	if tok != nil && !tok.Valid() && tok.RefreshToken != "" {
		refreshed, err := p.config.TokenSource(ctx, tok).Token()
		if err == nil {
			log.Println("Auth: refreshed expired token")
			if err := p.save(refreshed); err != nil {
				return nil, err
			}
			return refreshed, nil
		}
		log.Printf("Auth: token refresh failed, asking for consent: %v", err)
		tok = nil
	}
	if tok != nil && tok.Valid() {
		return tok, nil
	}

	tok, err = p.consent(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.save(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (p *Provider) consent(ctx context.Context) (*oauth2.Token, error) {
	if p.prompt == nil {
		return nil, &AuthError{Op: "consent", Err: errors.New("no stored token and no interactive prompt")}
	}
	authURL := p.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	code, err := p.prompt(ctx, authURL)
	if err != nil {
		return nil, &AuthError{Op: "read authorization code", Err: err}
	}
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthError{Op: "exchange authorization code", Err: err}
	}
	return tok, nil
}

func (p *Provider) save(tok *oauth2.Token) error {
	if err := p.store.Save(tok); err != nil {
		return &AuthError{Op: "save token", Err: err}
	}
	return nil
}

// HTTPClient returns a client that authorizes requests and persists tokens
// refreshed during the run.
func (p *Provider) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := p.Token(ctx)
	if err != nil {
		return nil, err
	}
	src := &savingTokenSource{
		src:   p.config.TokenSource(ctx, tok),
		store: p.store,
		last:  tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// savingTokenSource writes a token back to the store whenever the
// underlying source returns a new access token.
type savingTokenSource struct {
	src   oauth2.TokenSource
	store TokenStore

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(tok); err != nil {
			log.Printf("Auth: unable to save refreshed token: %v", err)
		}
	}
	return tok, nil
}
