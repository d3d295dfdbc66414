package game

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Varga-Levente/catch-the-impostor/words"
)

// SettingsStore is the writable side of the provider, used by the admin
// endpoints.
type SettingsStore interface {
	WordProvider
	Reload() (int, words.Settings, error)
	UpdateSettings(patch words.SettingsPatch) (words.Settings, error)
	UpdateWords(list []string) (int, error)
}

type Handler struct {
	registry *Registry
	store    SettingsStore
}

func NewHandler(registry *Registry, store SettingsStore) *Handler {
	return &Handler{registry: registry, store: store}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/create-room", h.CreateRoomHandler)
	r.POST("/join-room", h.JoinRoomHandler)
	r.POST("/leave-room", h.LeaveRoomHandler)
	r.POST("/kick-player", h.KickPlayerHandler)
	r.POST("/start", h.StartHandler)
	r.POST("/vote", h.VoteHandler)
	r.GET("/rooms", h.ListRoomsHandler)
	r.GET("/settings", h.GetSettingsHandler)
	r.POST("/settings", h.UpdateSettingsHandler)
	r.GET("/words", h.GetWordsHandler)
	r.POST("/words", h.UpdateWordsHandler)
	r.POST("/reload-data", h.ReloadDataHandler)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadPin), errors.Is(err, ErrNotHost):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func abortWith(ctx *gin.Context, err error) {
	ctx.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

type createRoomRequest struct {
	Name     string `json:"name"`
	HostName string `json:"hostName"`
}

func (h *Handler) CreateRoomHandler(ctx *gin.Context) {
	req := createRoomRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}
	if req.HostName == "" {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "hostName is required"})
		return
	}

	view, err := h.registry.CreateRoom(req.Name, req.HostName)
	if err != nil {
		abortWith(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"room":   gin.H{"name": view.Name, "hostId": view.HostID, "players": view.Players},
		"hostId": view.HostID,
		"pin":    view.Pin,
	})
}

type joinRoomRequest struct {
	Name       string `json:"name"`
	Pin        string `json:"pin"`
	PlayerName string `json:"playerName"`
}

func (h *Handler) JoinRoomHandler(ctx *gin.Context) {
	req := joinRoomRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}
	if req.PlayerName == "" {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "playerName is required"})
		return
	}

	playerID, view, err := h.registry.JoinRoom(req.Name, req.Pin, req.PlayerName)
	if err != nil {
		abortWith(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": playerID, "room": view})
}

type leaveRoomRequest struct {
	RoomName string `json:"roomName"`
	PlayerID string `json:"playerId"`
}

func (h *Handler) LeaveRoomHandler(ctx *gin.Context) {
	req := leaveRoomRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}

	if err := h.registry.Leave(req.RoomName, req.PlayerID); err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "left"})
}

type kickPlayerRequest struct {
	RoomName string `json:"roomName"`
	PlayerID string `json:"playerId"`
	HostID   string `json:"hostId"`
}

func (h *Handler) KickPlayerHandler(ctx *gin.Context) {
	req := kickPlayerRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}

	if err := h.registry.Kick(req.RoomName, req.PlayerID, req.HostID); err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "player kicked"})
}

type startRequest struct {
	RoomName string `json:"roomName"`
}

func (h *Handler) StartHandler(ctx *gin.Context) {
	req := startRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}

	if err := h.registry.Start(req.RoomName); err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "started"})
}

type voteRequest struct {
	RoomName string `json:"roomName"`
	VoterID  string `json:"voterId"`
	VotedID  string `json:"votedId"`
}

func (h *Handler) VoteHandler(ctx *gin.Context) {
	req := voteRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}
	if req.VoterID == "" || req.VotedID == "" {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "voterId and votedId are required"})
		return
	}

	if err := h.registry.CastVote(req.RoomName, req.VoterID, req.VotedID); err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "vote received"})
}

func (h *Handler) ListRoomsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.registry.ListRooms())
}

func (h *Handler) GetSettingsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.store.Settings())
}

func (h *Handler) UpdateSettingsHandler(ctx *gin.Context) {
	patch := words.SettingsPatch{}
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}

	settings, err := h.store.UpdateSettings(patch)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "settings updated", "settings": settings})
}

func (h *Handler) GetWordsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.store.Words())
}

type updateWordsRequest struct {
	Words []string `json:"words"`
}

func (h *Handler) UpdateWordsHandler(ctx *gin.Context) {
	req := updateWordsRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}

	count, err := h.store.UpdateWords(req.Words)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "words updated", "count": count})
}

func (h *Handler) ReloadDataHandler(ctx *gin.Context) {
	count, settings, err := h.store.Reload()
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload data"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "data reloaded", "wordCount": count, "settings": settings})
}
