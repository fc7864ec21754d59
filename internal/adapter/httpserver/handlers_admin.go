package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/fortyfive/internal/domain"
	apperrors "github.com/pscheid92/fortyfive/internal/platform/errors"
)

// maxChatMessageLength is the longest message Twitch accepts in chat.
const maxChatMessageLength = 500

type configResponse struct {
	BroadcasterID string            `json:"broadcaster_id"`
	IsDefault     bool              `json:"is_default"`
	FortyFive     fortyFiveResponse `json:"forty_five"`
}

type fortyFiveResponse struct {
	PerfectMessage string `json:"perfect_45_message"`
}

type configRequest struct {
	FortyFive *struct {
		PerfectMessage *string `json:"perfect_45_message"`
	} `json:"forty_five"`
}

func (s *Server) registerConfigRoutes(g *echo.Group) {
	g.GET("/broadcasters/:id/config", s.handleGetConfig)
	g.PUT("/broadcasters/:id/config", s.handlePutConfig)
	g.DELETE("/broadcasters/:id/config", s.handleDeleteConfig)
}

func (s *Server) registerSubscriptionRoutes(g *echo.Group) {
	if s.subscriptions == nil {
		return
	}
	g.POST("/broadcasters/:id/subscription", s.handleSubscribe)
	g.DELETE("/broadcasters/:id/subscription", s.handleUnsubscribe)
}

func (s *Server) handleGetConfig(c echo.Context) error {
	broadcasterID, err := broadcasterParam(c)
	if err != nil {
		return err
	}

	cfg, err := s.configs.Get(c.Request().Context(), broadcasterID)
	isDefault := errors.Is(err, domain.ErrConfigNotFound)
	switch {
	case isDefault:
		defaults := domain.DefaultBroadcasterConfig()
		cfg = &defaults
	case err != nil:
		return apperrors.ExternalError("failed to load config", err).WithField("broadcaster_id", broadcasterID)
	}

	return writeConfig(c, broadcasterID, *cfg, isDefault)
}

func (s *Server) handlePutConfig(c echo.Context) error {
	broadcasterID, err := broadcasterParam(c)
	if err != nil {
		return err
	}

	var req configRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("request body must be a JSON config document")
	}

	cfg, err := req.toDomain()
	if err != nil {
		return err
	}

	if err := s.configs.Put(c.Request().Context(), broadcasterID, cfg); err != nil {
		return apperrors.ExternalError("failed to save config", err).WithField("broadcaster_id", broadcasterID)
	}

	return writeConfig(c, broadcasterID, cfg, false)
}

func (s *Server) handleDeleteConfig(c echo.Context) error {
	broadcasterID, err := broadcasterParam(c)
	if err != nil {
		return err
	}

	if err := s.configs.Delete(c.Request().Context(), broadcasterID); err != nil {
		return apperrors.ExternalError("failed to reset config", err).WithField("broadcaster_id", broadcasterID)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSubscribe(c echo.Context) error {
	broadcasterID, err := broadcasterParam(c)
	if err != nil {
		return err
	}

	if err := s.subscriptions.Subscribe(c.Request().Context(), broadcasterID); err != nil {
		return apperrors.ExternalError("failed to subscribe to chat", err).WithField("broadcaster_id", broadcasterID)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleUnsubscribe(c echo.Context) error {
	broadcasterID, err := broadcasterParam(c)
	if err != nil {
		return err
	}

	if err := s.subscriptions.Unsubscribe(c.Request().Context(), broadcasterID); err != nil {
		return apperrors.ExternalError("failed to unsubscribe from chat", err).WithField("broadcaster_id", broadcasterID)
	}
	return c.NoContent(http.StatusNoContent)
}

// broadcasterParam returns the numeric Twitch user id from the path.
func broadcasterParam(c echo.Context) (string, error) {
	id := c.Param("id")
	if id == "" || strings.TrimLeft(id, "0123456789") != "" {
		return "", apperrors.ValidationError("broadcaster id must be a numeric Twitch user id").WithField("broadcaster_id", id)
	}
	return id, nil
}

func (r configRequest) toDomain() (domain.BroadcasterConfig, error) {
	if r.FortyFive == nil || r.FortyFive.PerfectMessage == nil {
		return domain.BroadcasterConfig{}, apperrors.ValidationError("forty_five.perfect_45_message is required")
	}

	message := strings.TrimSpace(*r.FortyFive.PerfectMessage)
	switch {
	case message == "":
		return domain.BroadcasterConfig{}, apperrors.ValidationError("perfect_45_message must not be empty")
	case utf8.RuneCountInString(message) > maxChatMessageLength:
		return domain.BroadcasterConfig{}, apperrors.ValidationError(fmt.Sprintf("perfect_45_message must be at most %d characters", maxChatMessageLength))
	}

	return domain.BroadcasterConfig{
		FortyFive: domain.FortyFiveConfig{PerfectMessage: message},
	}, nil
}

func writeConfig(c echo.Context, broadcasterID string, cfg domain.BroadcasterConfig, isDefault bool) error {
	resp := configResponse{
		BroadcasterID: broadcasterID,
		IsDefault:     isDefault,
		FortyFive:     fortyFiveResponse{PerfectMessage: cfg.FortyFive.PerfectMessage},
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
