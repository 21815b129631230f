// Package api is the HTTP surface of the server.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/player"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/engine"
	"github.com/cosmic-idle/server/internal/persistence"
	"github.com/cosmic-idle/server/internal/platform/logger"
)

// GameHandler serves state, actions, saving and wiping.
type GameHandler struct {
	engine  *engine.Engine
	gateway *persistence.Gateway
	logger  *logger.Logger
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(eng *engine.Engine, gw *persistence.Gateway, log *logger.Logger) *GameHandler {
	return &GameHandler{engine: eng, gateway: gw, logger: log}
}

// State returns the current snapshot.
// GET /api/state
func (h *GameHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot())
}

// CatalogResponse lists the balance tables and module descriptions.
type CatalogResponse struct {
	Buildings economy.Catalog     `json:"buildings"`
	Artifacts prestige.Catalog    `json:"artifacts"`
	Modules   []player.ModuleInfo `json:"modules"`
}

// Catalog returns the balance tables in use.
// GET /api/catalog
func (h *GameHandler) Catalog(c *gin.Context) {
	buildings, artifacts := h.engine.Catalogs()
	c.JSON(http.StatusOK, CatalogResponse{
		Buildings: buildings,
		Artifacts: artifacts,
		Modules:   player.Modules,
	})
}

// ActionResponse reports the outcome of an action with the state after it.
type ActionResponse struct {
	Applied bool            `json:"applied"`
	State   engine.Snapshot `json:"state"`
}

// Action applies one player action.
// POST /api/actions
func (h *GameHandler) Action(c *gin.Context) {
	var action engine.Action
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed action: " + err.Error()})
		return
	}

	applied, err := h.engine.Dispatch(action)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrUnknownAction) || errors.Is(err, engine.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ActionResponse{Applied: applied, State: h.engine.Snapshot()})
}

// Save forces a save.
// POST /api/save
func (h *GameHandler) Save(c *gin.Context) {
	if err := h.gateway.SaveFrom(c.Request.Context(), h.engine.Snapshot); err != nil {
		h.logger.Error("manual save failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

// Reset wipes every model, prestige included, then replaces the save with
// the fresh game. It requires ?confirm=true.
// POST /api/reset
func (h *GameHandler) Reset(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reset wipes all progress; pass confirm=true"})
		return
	}
	err := h.gateway.Restart(c.Request.Context(), func() engine.Snapshot {
		h.engine.Wipe()
		return h.engine.Snapshot()
	})
	if err != nil {
		h.logger.Error("reset failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true, "state": h.engine.Snapshot()})
}
