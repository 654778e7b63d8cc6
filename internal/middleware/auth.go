package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"taskprogress/internal/auth"
	"taskprogress/internal/model"
	"taskprogress/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ActorKey  = "actor"
	ClaimsKey = "claims"

	// SessionCookie carries the token for browser sessions.
	SessionCookie = "session"
	LoginPath     = "/login"
)

// Authenticator resolves a token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, *auth.Claims, error)
}

// Authenticate loads the actor from a Bearer token or the session cookie.
// Requests without credentials pass through without an actor; RequireActor
// decides what to do with them.
func Authenticate(a Authenticator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}
		if token == "" {
			c.Next()
			return
		}

		actor, claims, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			if isTokenError(err) {
				if IsAPI(c) {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
					return
				}
				ClearSessionCookie(c)
				c.Next()
				return
			}
			log.Errorw("authentication failed", "error", err)
			abortInternal(c)
			return
		}

		c.Set(ActorKey, actor)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuthenticate sets the actor when the request carries a usable
// token and otherwise continues anonymously. It never aborts, so login
// routes stay reachable with a stale cookie or a malformed header.
func OptionalAuthenticate(a Authenticator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok || token == "" {
			c.Next()
			return
		}

		actor, claims, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !isTokenError(err) {
				log.Warnw("authentication skipped", "path", c.Request.URL.Path, "error", err)
			}
			if _, cerr := c.Cookie(SessionCookie); cerr == nil {
				ClearSessionCookie(c)
			}
			c.Next()
			return
		}

		c.Set(ActorKey, actor)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireActor rejects requests without an active actor.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil {
			if IsAPI(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
				return
			}
			session.SetFlash(c, "info", "Please log in to access this page")
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		if !actor.Active {
			if IsAPI(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
				return
			}
			ClearSessionCookie(c)
			session.SetFlash(c, "danger", "Your account has been disabled, please contact an administrator")
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoles admits only the listed roles. Run it after RequireActor.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor != nil && allowed[actor.Role] {
			c.Next()
			return
		}
		if IsAPI(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
			return
		}
		session.SetFlash(c, "danger", "You do not have permission to access this page")
		c.Redirect(http.StatusFound, HomeFor(actor))
		c.Abort()
	}
}

// HomeFor is the landing page of a role.
func HomeFor(actor *model.User) string {
	if actor == nil {
		return LoginPath
	}
	switch actor.Role {
	case model.RoleAdmin:
		return "/admin/users"
	case model.RoleDataEntry, model.RoleSupervisor:
		return "/"
	}
	return LoginPath
}

// Actor returns the authenticated user or nil.
func Actor(c *gin.Context) *model.User {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*model.User)
	return actor
}

func Claims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func IsAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

func SetSessionCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}

// extractToken prefers the Authorization header. ok is false only for a
// header that is present but not a Bearer token.
func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie, true
	}
	return "", true
}

// isTokenError separates a bad or revoked credential from a backend failure.
func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrInvalidClaims) ||
		errors.Is(err, auth.ErrTokenRevoked)
}

func abortInternal(c *gin.Context) {
	if IsAPI(c) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.AbortWithStatus(http.StatusInternalServerError)
}
