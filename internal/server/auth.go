package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"vexillum/internal/middleware"
	"vexillum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "vexillum-api"
	tokenAudience = "vexillum-client"
)

var errTokenRevoked = errors.New("token has been revoked")

// sessionClaims is what a verified session token tells us.
type sessionClaims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// generateToken issues a session JWT for userID.
func (s *Server) generateToken(userID uint) (string, error) {
	if s.config.JWTSecret == "" {
		return "", errors.New("JWT secret not configured")
	}

	ttl := time.Duration(s.config.JWTTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// parseToken verifies signature, issuer, audience and revocation.
func (s *Server) parseToken(ctx context.Context, tokenString string) (*sessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, errors.New("invalid user ID in token")
	}

	out := &sessionClaims{UserID: uint(userID)}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if jti, ok := claims["jti"].(string); ok && jti != "" {
		out.JTI = jti
		if s.redis != nil {
			revoked, err := s.redis.Exists(ctx, "blacklist:"+jti).Result()
			if err == nil && revoked > 0 {
				return nil, errTokenRevoked
			}
		}
	}
	return out, nil
}

// revokeToken blacklists the token's jti until the token would have expired.
func (s *Server) revokeToken(ctx context.Context, claims *sessionClaims) error {
	if s.redis == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, "blacklist:"+claims.JTI, "1", ttl).Err()
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// authenticate resolves the bearer token into the acting user and stores it
// in locals.
func (s *Server) authenticate(c *fiber.Ctx, tokenString string) error {
	claims, err := s.parseToken(c.UserContext(), tokenString)
	if err != nil {
		if errors.Is(err, errTokenRevoked) {
			return models.NewUnauthorizedError("Token has been revoked")
		}
		return models.NewUnauthorizedError("Invalid or expired token")
	}

	actor, user, err := s.userService.ResolveActor(c.UserContext(), claims.UserID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return models.NewUnauthorizedError("Account no longer exists")
		}
		return err
	}

	c.Locals("userID", user.ID)
	c.Locals("actor", actor)
	c.Locals("session", claims)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID)
	c.SetUserContext(ctx)
	return nil
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		if err := s.authenticate(c, tokenString); err != nil {
			return s.respondServiceError(c, err)
		}
		return c.Next()
	}
}

// optionalAuth identifies the caller when a valid token is present and lets
// anonymous requests through. The feed socket may pass the token as a query
// parameter since browsers cannot set headers on websocket requests.
func (s *Server) optionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString != "" {
			_ = s.authenticate(c, tokenString)
		}
		return c.Next()
	}
}

// AdminRequired rejects non-admin users with 403. It must follow
// AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !actorFrom(c).IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// actorFrom returns the authenticated actor, or the anonymous actor.
func actorFrom(c *fiber.Ctx) models.Actor {
	if actor, ok := c.Locals("actor").(models.Actor); ok {
		return actor
	}
	return models.Actor{}
}

// viewerFrom is actorFrom for public reads that still personalise output.
func (s *Server) viewerFrom(c *fiber.Ctx) models.Actor {
	if actor, ok := c.Locals("actor").(models.Actor); ok {
		return actor
	}
	tokenString := bearerToken(c)
	if tokenString == "" {
		return models.Actor{}
	}
	claims, err := s.parseToken(c.UserContext(), tokenString)
	if err != nil {
		return models.Actor{}
	}
	return models.Actor{UserID: claims.UserID}
}
