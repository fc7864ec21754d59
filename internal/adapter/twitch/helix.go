package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	twitchapi "github.com/nicklaw5/helix/v2"
	"github.com/pscheid92/fortyfive/internal/adapter/metrics"
	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/pscheid92/fortyfive/internal/platform/version"
	"github.com/sony/gobreaker"
)

const (
	helixRequestTimeout    = 10 * time.Second
	helixBreakerTimeout    = 30 * time.Second
	helixBreakerTripFaults = 5
)

// ErrUnauthorized is returned when Twitch rejects the application token.
var ErrUnauthorized = errors.New("twitch rejected the access token")

// APIError is a non-success Helix response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("helix %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// HelixClient implements domain.UserDirectory and domain.ChatSender on top of
// the Helix API, authenticated with the application token from tokens.
type HelixClient struct {
	clientID   string
	botUserID  string
	tokens     domain.TokenSource
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.TwitchMetrics
}

func NewHelixClient(clientID, botUserID string, tokens domain.TokenSource, httpClient *http.Client, tm *metrics.TwitchMetrics, sm *metrics.StoreMetrics) *HelixClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: helixRequestTimeout}
	}

	settings := gobreaker.Settings{
		Name:    "helix",
		Timeout: helixBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= helixBreakerTripFaults
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrUserNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			sm.SetBreakerState(name, to.String())
		},
	}
	sm.SetBreakerState(settings.Name, gobreaker.StateClosed.String())

	return &HelixClient{
		clientID:   clientID,
		botUserID:  botUserID,
		tokens:     tokens,
		httpClient: httpClient,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		metrics:    tm,
	}
}

func (c *HelixClient) UserByLogin(ctx context.Context, login string) (*domain.TwitchUser, error) {
	return c.getUser(ctx, &twitchapi.UsersParams{Logins: []string{login}})
}

func (c *HelixClient) UserByID(ctx context.Context, id string) (*domain.TwitchUser, error) {
	return c.getUser(ctx, &twitchapi.UsersParams{IDs: []string{id}})
}

func (c *HelixClient) getUser(ctx context.Context, params *twitchapi.UsersParams) (*domain.TwitchUser, error) {
	var user *domain.TwitchUser
	err := c.call(ctx, "get_users", func(api *twitchapi.Client) error {
		resp, err := api.GetUsers(params)
		if err != nil {
			return err
		}
		if err := checkResponse("get_users", resp.StatusCode, resp.ErrorMessage); err != nil {
			return err
		}
		if len(resp.Data.Users) == 0 {
			return domain.ErrUserNotFound
		}

		u := resp.Data.Users[0]
		user = &domain.TwitchUser{ID: u.ID, Login: u.Login, DisplayName: u.DisplayName}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SendChatMessage posts message to the broadcaster's chat as the bot user.
func (c *HelixClient) SendChatMessage(ctx context.Context, broadcasterID, message string) error {
	return c.call(ctx, "send_chat_message", func(api *twitchapi.Client) error {
		resp, err := api.SendChatMessage(&twitchapi.SendChatMessageParams{
			BroadcasterID: broadcasterID,
			SenderID:      c.botUserID,
			Message:       message,
		})
		if err != nil {
			return err
		}
		return checkResponse("send_chat_message", resp.StatusCode, resp.ErrorMessage)
	})
}

// call runs fn with a client bound to the current application token. An
// unauthorized response is retried once, which makes the token source
// validate and replace the rejected token.
func (c *HelixClient) call(ctx context.Context, endpoint string, fn func(api *twitchapi.Client) error) error {
	err := c.callOnce(ctx, endpoint, fn)
	if errors.Is(err, ErrUnauthorized) {
		slog.Info("Helix rejected the application token, retrying with a fresh one", "endpoint", endpoint)
		err = c.callOnce(ctx, endpoint, fn)
	}
	return err
}

func (c *HelixClient) callOnce(ctx context.Context, endpoint string, fn func(api *twitchapi.Client) error) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	api, err := c.newAPI(ctx, token)
	if err != nil {
		return err
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, fn(api)
	})
	c.metrics.ObserveRequest(endpoint, err)
	if err != nil {
		return fmt.Errorf("helix %s: %w", endpoint, err)
	}
	return nil
}

func (c *HelixClient) newAPI(ctx context.Context, token string) (*twitchapi.Client, error) {
	api, err := twitchapi.NewClient(&twitchapi.Options{
		ClientID:       c.clientID,
		AppAccessToken: token,
		HTTPClient:     contextClient(ctx, c.httpClient),
		UserAgent:      version.UserAgent(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}
	return api, nil
}

func checkResponse(endpoint string, status int, message string) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status >= 200 && status < 300:
		return nil
	default:
		return &APIError{Endpoint: endpoint, StatusCode: status, Message: message}
	}
}

// TokenValidator checks application tokens against the Twitch validate endpoint.
type TokenValidator struct {
	clientID   string
	httpClient *http.Client
}

func NewTokenValidator(clientID string, httpClient *http.Client) *TokenValidator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: helixRequestTimeout}
	}
	return &TokenValidator{clientID: clientID, httpClient: httpClient}
}

func (v *TokenValidator) ValidateToken(ctx context.Context, token string) (bool, error) {
	api, err := twitchapi.NewClient(&twitchapi.Options{
		ClientID:   v.clientID,
		HTTPClient: contextClient(ctx, v.httpClient),
		UserAgent:  version.UserAgent(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to create helix client: %w", err)
	}

	valid, resp, err := api.ValidateToken(token)
	if err != nil {
		return false, fmt.Errorf("validate token: %w", err)
	}
	if !valid && resp != nil && resp.StatusCode >= 500 {
		return false, &APIError{Endpoint: "validate", StatusCode: resp.StatusCode, Message: resp.ErrorMessage}
	}
	return valid, nil
}

// contextClient returns a client whose requests carry ctx, since the Helix
// library builds requests without one.
func contextClient(ctx context.Context, base *http.Client) *http.Client {
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	c := *base
	c.Transport = contextTransport{ctx: ctx, base: transport}
	return &c
}

type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}
