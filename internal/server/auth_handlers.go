package server

import (
	"errors"
	"log/slog"
	"net/url"

	"vexillum/internal/identity"
	"vexillum/internal/middleware"
	"vexillum/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GoogleLogin godoc
// @Summary Start Google sign-in
// @Description Stores a single-use state and redirects to Google's consent screen.
// @Tags auth
// @Success 302
// @Failure 503 {object} models.ErrorResponse
// @Router /auth/google/login [get]
func (s *Server) GoogleLogin(c *fiber.Ctx) error {
	if s.identity == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewValidationError("Login is not configured"))
	}

	state, err := s.states.Issue(c.UserContext())
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "failed to issue oauth state",
			slog.String("error", err.Error()))
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(err))
	}

	return c.Redirect(s.identity.AuthCodeURL(state), fiber.StatusFound)
}

// GoogleCallback godoc
// @Summary Finish Google sign-in
// @Description Consumes the state, exchanges the code and issues a session token.
// @Tags auth
// @Produce json
// @Param state query string true "OAuth state"
// @Param code query string true "Authorization code"
// @Success 200 {object} map[string]interface{}
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/google/callback [get]
func (s *Server) GoogleCallback(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if s.identity == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewValidationError("Login is not configured"))
	}

	if providerErr := c.Query("error"); providerErr != "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Sign-in was cancelled: "+providerErr))
	}

	if err := s.states.Consume(ctx, c.Query("state")); err != nil {
		if errors.Is(err, identity.ErrInvalidState) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid or expired login state"))
		}
		return s.respondServiceError(c, err)
	}

	ext, err := s.identity.Exchange(ctx, c.Query("code"))
	if err != nil {
		if errors.Is(err, identity.ErrNotConfigured) {
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				models.NewValidationError("Login is not configured"))
		}
		return s.respondServiceError(c, err)
	}

	user, err := s.userService.LoginWithIdentity(ctx, *ext)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return s.respondServiceError(c, models.NewInternalError(err))
	}

	middleware.Logger.InfoContext(ctx, "user signed in",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("provider", s.identity.Name()),
	)

	if s.config.OAuthSuccessRedirect != "" {
		return c.Redirect(s.config.OAuthSuccessRedirect+"#token="+url.QueryEscape(token), fiber.StatusFound)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout godoc
// @Summary Revoke the current session token
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals("session").(*sessionClaims)
	if err := s.revokeToken(c.UserContext(), claims); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token",
			slog.String("error", err.Error()))
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GetMe godoc
// @Summary Current user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), actorFrom(c).UserID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user)
}
