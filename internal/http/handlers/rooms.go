package handlers

import (
	"net/http"
	"strconv"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"
	"wordchain/internal/service"
	"wordchain/internal/ws"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	rooms *service.RoomService
}

func NewRoomHandler(rooms *service.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

type roomBody struct {
	Name     string                  `json:"name"`
	Capacity int                     `json:"capacity"`
	Rules    *domain.DeathmatchRules `json:"rules"`
}

func currentPlayer(c *gin.Context) domain.Player {
	return c.MustGet(ws.PlayerKey).(domain.Player)
}

func roomID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		renderError(c, apperr.Validation("id", "must be an integer"))
		return 0, false
	}
	return id, true
}

// List returns every room except the lobby.
func (h *RoomHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.rooms.Rooms())
}

func (h *RoomHandler) Create(c *gin.Context) {
	var body roomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		renderError(c, apperr.Validation("body", "invalid request body"))
		return
	}
	rules := domain.DefaultDeathmatchRules()
	if body.Rules != nil {
		rules = *body.Rules
	}

	out, err := h.rooms.Create(c.Request.Context(), currentPlayer(c), body.Name, body.Capacity, rules)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *RoomHandler) Modify(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var body roomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		renderError(c, apperr.Validation("body", "invalid request body"))
		return
	}
	rules := domain.DefaultDeathmatchRules()
	if body.Rules != nil {
		rules = *body.Rules
	}

	state, err := h.rooms.Modify(c.Request.Context(), id, body.Capacity, rules)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *RoomHandler) Join(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	state, err := h.rooms.Join(c.Request.Context(), currentPlayer(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *RoomHandler) Leave(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	delta, err := h.rooms.Leave(c.Request.Context(), currentPlayer(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, delta)
}

func (h *RoomHandler) ToggleStatus(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	state, err := h.rooms.ToggleStatus(c.Request.Context(), currentPlayer(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *RoomHandler) ToggleReady(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	state, err := h.rooms.ToggleReady(c.Request.Context(), currentPlayer(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Return acknowledges the player leaving the post-game screen.
func (h *RoomHandler) Return(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	if err := h.rooms.ReturnFromGame(c.Request.Context(), currentPlayer(c), id); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "ok"})
}

func (h *RoomHandler) Kick(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	name := c.Param("name")
	if err := h.rooms.Kick(c.Request.Context(), currentPlayer(c), id, name); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "ok"})
}

func (h *RoomHandler) Start(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	gameID, err := h.rooms.Start(c.Request.Context(), currentPlayer(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": gameID})
}
