package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// ProviderFactory builds a provider client bound to token.
type ProviderFactory func(token string) driven.StatisticsProvider

// CredentialService manages the stored BPS token and keeps the provider
// holder in step with it.
type CredentialService struct {
	store    driven.CredentialStore
	holder   *ProviderHolder
	factory  ProviderFactory
	envToken string
}

// NewCredentialService creates a CredentialService. envToken is the token from
// the environment, used when none is stored.
func NewCredentialService(store driven.CredentialStore, holder *ProviderHolder, factory ProviderFactory, envToken string) *CredentialService {
	return &CredentialService{store: store, holder: holder, factory: factory, envToken: envToken}
}

// ResolveToken returns the active token: the stored credential when present,
// otherwise the environment token. An unavailable store is logged and skipped.
func (c *CredentialService) ResolveToken(ctx context.Context) string {
	if c.store != nil {
		stored, err := c.store.Get(ctx, model.CredentialServiceBPS)
		switch {
		case errors.Is(err, driven.ErrEncryptionKeyNotSet):
			slog.Debug("credential store disabled, using environment token")
		case err != nil:
			slog.Warn("reading stored token failed", "error", err)
		case stored != "":
			return stored
		}
	}
	return c.envToken
}

// Init installs a client for the resolved token, or none when there is no token.
func (c *CredentialService) Init(ctx context.Context) {
	token := c.ResolveToken(ctx)
	if token == "" {
		slog.Info("no BPS API token configured")
		c.holder.Replace(nil)
		return
	}
	c.holder.Replace(c.factory(token))
}

// SetToken stores token and swaps in a client that uses it.
func (c *CredentialService) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.NewError(model.KindCredentialMissing, "token is empty", nil)
	}
	if c.store == nil {
		return driven.ErrEncryptionKeyNotSet
	}
	if err := c.store.Set(ctx, model.CredentialServiceBPS, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	c.holder.Replace(c.factory(token))
	slog.Info("BPS API token updated")
	return nil
}

// ClearToken deletes the stored token. The environment token, if any, takes
// over; otherwise the layer reports CredentialMissing until a token is set.
func (c *CredentialService) ClearToken(ctx context.Context) error {
	if c.store != nil {
		if err := c.store.Delete(ctx, model.CredentialServiceBPS); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}
	}
	if c.envToken != "" {
		c.holder.Replace(c.factory(c.envToken))
	} else {
		c.holder.Replace(nil)
	}
	slog.Info("stored BPS API token cleared")
	return nil
}

// Token sources reported by Status.
const (
	TokenSourceStored      = "stored"
	TokenSourceEnvironment = "environment"
)

// TokenStatus describes the active token without revealing it.
type TokenStatus struct {
	Masked    string
	Source    string
	UpdatedAt time.Time // Zero unless Source is TokenSourceStored.
}

// Configured reports whether any token is active.
func (s TokenStatus) Configured() bool { return s.Source != "" }

// Status reports which token is active and, for a stored token, when it was
// last written.
func (c *CredentialService) Status(ctx context.Context) (TokenStatus, error) {
	if c.store != nil {
		creds, err := c.store.List(ctx)
		if err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return TokenStatus{}, fmt.Errorf("list credentials: %w", err)
		}
		for _, cred := range creds {
			if cred.Service == model.CredentialServiceBPS && cred.Value != "" {
				return TokenStatus{
					Masked:    cred.MaskedValue(),
					Source:    TokenSourceStored,
					UpdatedAt: cred.UpdatedAt,
				}, nil
			}
		}
	}
	if c.envToken != "" {
		return TokenStatus{
			Masked: model.Credential{Value: c.envToken}.MaskedValue(),
			Source: TokenSourceEnvironment,
		}, nil
	}
	return TokenStatus{}, nil
}
