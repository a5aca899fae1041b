package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"project-submission/internal/model/user"
	"project-submission/pkg/logger"
)

const (
	SessionCookie = "ps_session"
	VisitorCookie = "ps_visitor"

	ContextKeyActor = "actor"
)

const visitorTTL = 30 * 24 * time.Hour

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.Actor, error)
}

// Session attaches an actor to every request. A valid session token from the
// cookie or the Authorization header gives the logged-in user; otherwise the
// actor is an anonymous visitor identified by the visitor cookie.
func Session(auth Authenticator, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := sessionToken(c); token != "" {
			actor, err := auth.Authenticate(c.Request.Context(), token)
			if err == nil {
				c.Set(ContextKeyActor, actor)
				c.Next()
				return
			}
			logger.GetLogger(c.Request.Context()).Debug("session rejected", zap.Error(err))
			c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
		}

		visitor, err := c.Cookie(VisitorCookie)
		if err != nil || uuid.Validate(visitor) != nil {
			visitor = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(VisitorCookie, visitor, int(visitorTTL.Seconds()), "/", "", secure, true)
		}
		c.Set(ContextKeyActor, &user.Actor{SessionID: visitor})
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	token, _ := c.Cookie(SessionCookie)
	return token
}

// GetActor returns the request actor. Its ID is 0 for anonymous visitors.
func GetActor(c *gin.Context) *user.Actor {
	val, exists := c.Get(ContextKeyActor)
	if !exists {
		return &user.Actor{}
	}
	actor, ok := val.(*user.Actor)
	if !ok || actor == nil {
		return &user.Actor{}
	}
	return actor
}

// RequireLogin stops anonymous requests with 401.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetActor(c).ID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}
