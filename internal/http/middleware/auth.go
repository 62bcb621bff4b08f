package middleware

import (
	"context"
	"net/http"

	"wordchain/internal/domain"
	"wordchain/internal/logger"
	"wordchain/internal/service"
	"wordchain/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PlayerStore is the slice of the player repository the auth middleware
// needs.
type PlayerStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error)
}

// SetAuthCookie writes the auth token cookie. SameSite=None with Secure is
// required for the cross-origin browser client to send it back.
func SetAuthCookie(c *gin.Context, name, token string, maxAge int) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(name, token, maxAge, "/", "", true, true)
}

// ClearAuthCookie expires the auth token cookie.
func ClearAuthCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(name, "", -1, "/", "", true, true)
}

// CookieAuth authenticates the request from the JWT cookie, loads the
// player and stores it under ws.PlayerKey. Every authenticated request
// gets a refreshed cookie, so active players never expire mid-session.
func CookieAuth(players PlayerStore, cookieName string, maxAge int) gin.HandlerFunc {
	reject := func(c *gin.Context) {
		ClearAuthCookie(c, cookieName)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Not authenticated"})
	}

	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			reject(c)
			return
		}

		playerID, err := service.ParseToken(token)
		if err != nil {
			reject(c)
			return
		}

		player, err := players.GetByID(c.Request.Context(), playerID)
		if err != nil {
			reject(c)
			return
		}

		c.Set(ws.PlayerKey, *player)

		fresh, err := service.IssueToken(playerID)
		if err != nil {
			logger.Error("token refresh failed", "player_id", playerID, "error", err)
		} else {
			SetAuthCookie(c, cookieName, fresh, maxAge)
		}

		c.Next()
	}
}
