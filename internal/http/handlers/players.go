package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"
	"wordchain/internal/http/middleware"
	"wordchain/internal/service"
	"wordchain/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxPlayerNameLength = 10

// PlayerStore is the slice of the player repository the handlers need.
type PlayerStore interface {
	Create(ctx context.Context, name string) (*domain.Player, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error)
}

type PlayerHandler struct {
	players      PlayerStore
	cookieName   string
	cookieMaxAge int
}

func NewPlayerHandler(players PlayerStore, cookieName string, cookieTTL time.Duration) *PlayerHandler {
	return &PlayerHandler{
		players:      players,
		cookieName:   cookieName,
		cookieMaxAge: int(cookieTTL.Seconds()),
	}
}

// Create registers a new account. The returned id is the only credential;
// the client logs in with it afterwards.
func (h *PlayerHandler) Create(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		renderError(c, apperr.Validation("name", "invalid request body"))
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" || len(name) > maxPlayerNameLength {
		renderError(c, apperr.Validation("name",
			"must be between 1 and 10 characters"))
		return
	}

	player, err := h.players.Create(c.Request.Context(), name)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, player)
}

// Login exchanges a player id for the auth cookie. An unknown id gets the
// same 403 as a bad token, so ids cannot be probed apart from tokens.
func (h *PlayerHandler) Login(c *gin.Context) {
	var body struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		renderError(c, apperr.Validation("id", "invalid request body"))
		return
	}

	playerID, err := uuid.Parse(body.ID)
	if err != nil {
		renderError(c, apperr.Validation("id", "must be a valid UUID"))
		return
	}

	player, err := h.players.GetByID(c.Request.Context(), playerID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			renderError(c, apperr.New(apperr.KindForbidden, "player not found"))
			return
		}
		renderError(c, err)
		return
	}

	token, err := service.IssueToken(player.ID)
	if err != nil {
		renderError(c, err)
		return
	}
	middleware.SetAuthCookie(c, h.cookieName, token, h.cookieMaxAge)
	c.JSON(http.StatusOK, player)
}

// Me returns the authenticated player.
func (h *PlayerHandler) Me(c *gin.Context) {
	player := c.MustGet(ws.PlayerKey).(domain.Player)
	c.JSON(http.StatusOK, player)
}

// Logout expires the auth cookie.
func (h *PlayerHandler) Logout(c *gin.Context) {
	middleware.ClearAuthCookie(c, h.cookieName)
	c.JSON(http.StatusOK, gin.H{"detail": "logged out"})
}
