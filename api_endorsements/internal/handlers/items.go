package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

// ItemSyncHandler receives identity updates from the directory CRUD layer
type ItemSyncHandler struct {
	syncer  ItemSyncer
	logger  logging.Logger
	onWrite func(ref store.ItemRef)
}

func NewItemSyncHandler(syncer ItemSyncer, logger logging.Logger, onWrite func(ref store.ItemRef)) *ItemSyncHandler {
	return &ItemSyncHandler{syncer: syncer, logger: logger, onWrite: onWrite}
}

type itemSyncBody struct {
	Name        string   `json:"name" binding:"required"`
	OwnerID     string   `json:"ownerId"`
	Maintainers []string `json:"maintainers"`
}

func (h *ItemSyncHandler) Handle(c *gin.Context) {
	var body itemSyncBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": errInvalidRequest})
		return
	}

	ref := store.ItemRef{Type: store.ItemType(c.Param("type")), ID: c.Param("id")}
	err := h.syncer.UpsertItem(c.Request.Context(), store.ItemSync{
		Ref:         ref,
		Name:        body.Name,
		OwnerID:     body.OwnerID,
		Maintainers: body.Maintainers,
	})
	if errors.Is(err, store.ErrInvalidItem) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": errInvalidRequest})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("item_id", ref.ID).Error("Failed to sync item")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "SERVER_ERROR"})
		return
	}

	if h.onWrite != nil {
		h.onWrite(ref)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
