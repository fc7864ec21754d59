package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pscheid92/fortyfive/internal/adapter/metrics"
	"github.com/pscheid92/fortyfive/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	twitchTokenURL = "https://id.twitch.tv/oauth2/token"
	grantTimeout   = 15 * time.Second
)

// CredentialManager hands out the application access token shared by all
// Twitch calls. The token lives in the TokenStore only; every call validates
// the stored token and grants a new one when it is missing or rejected.
type CredentialManager struct {
	store     domain.TokenStore
	validator domain.TokenValidator
	granter   domain.TokenGranter
	metrics   *metrics.TwitchMetrics

	group singleflight.Group
}

func NewCredentialManager(store domain.TokenStore, validator domain.TokenValidator, granter domain.TokenGranter, m *metrics.TwitchMetrics) *CredentialManager {
	return &CredentialManager{
		store:     store,
		validator: validator,
		granter:   granter,
		metrics:   m,
	}
}

// Token returns a token that passed validation, or a freshly granted one when
// the slot is empty or validation fails for any reason.
func (cm *CredentialManager) Token(ctx context.Context) (string, error) {
	token, err := cm.store.GetToken(ctx)
	switch {
	case errors.Is(err, domain.ErrTokenNotFound):
		slog.Debug("No stored application token, granting a new one")
	case err != nil:
		return "", fmt.Errorf("failed to read stored token: %w", err)
	default:
		valid, err := cm.validator.ValidateToken(ctx, token)
		switch {
		case err != nil:
			slog.Warn("Could not validate stored application token, granting a new one", "error", err)
			cm.metrics.ObserveToken("validate_failed")
		case valid:
			cm.metrics.ObserveToken("reused")
			return token, nil
		default:
			slog.Info("Stored application token is no longer valid, granting a new one")
			cm.metrics.ObserveToken("invalid")
		}
	}

	return cm.grant(ctx)
}

// grant collapses concurrent grants into one round trip to the identity provider.
func (cm *CredentialManager) grant(ctx context.Context) (string, error) {
	ch := cm.group.DoChan("grant", func() (any, error) {
		grantCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grantTimeout)
		defer cancel()

		token, err := cm.granter.GrantAppToken(grantCtx)
		if err != nil {
			cm.metrics.ObserveToken("grant_failed")
			return "", fmt.Errorf("failed to grant application token: %w", err)
		}
		cm.metrics.ObserveToken("granted")

		if err := cm.store.PutToken(grantCtx, token); err != nil {
			slog.Error("Failed to persist application token", "error", err)
		}
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// OAuthGranter obtains application tokens through the client-credentials flow.
type OAuthGranter struct {
	config     clientcredentials.Config
	httpClient *http.Client
}

func NewOAuthGranter(clientID, clientSecret string, httpClient *http.Client) *OAuthGranter {
	return &OAuthGranter{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     twitchTokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}
}

func (g *OAuthGranter) GrantAppToken(ctx context.Context) (string, error) {
	if g.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}

	tok, err := g.config.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("client credentials grant: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("client credentials grant returned an empty token")
	}
	return tok.AccessToken, nil
}
