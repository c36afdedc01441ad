// Package collections manages a user's collections and their channels
package collections

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/gorm"
)

// Handler handles collection and channel requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new collections handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateCollectionRequest represents the request to create a collection
type CreateCollectionRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// UpdateCollectionRequest represents the request to update a collection
type UpdateCollectionRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}

// CreateChannelRequest represents the request to create a channel
type CreateChannelRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// ChannelResponse represents a channel in API responses
type ChannelResponse struct {
	ID            uint   `json:"id"`
	CollectionID  uint   `json:"collection_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	BookmarkCount int64  `json:"bookmark_count"`
}

// CollectionResponse represents a collection in API responses
type CollectionResponse struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Channels    []ChannelResponse `json:"channels"`
}

// bookmarkCounts returns the number of bookmarks per channel
func (h *Handler) bookmarkCounts(channelIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(channelIDs))
	if len(channelIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ChannelID uint
		Count     int64
	}
	err := h.db.Model(&models.Bookmark{}).
		Select("channel_id, COUNT(*) AS count").
		Where("channel_id IN ?", channelIDs).
		Group("channel_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ChannelID] = r.Count
	}
	return counts, nil
}

func channelToResponse(ch models.Channel, counts map[uint]int64) ChannelResponse {
	return ChannelResponse{
		ID:            ch.ID,
		CollectionID:  ch.CollectionID,
		Name:          ch.Name,
		Description:   ch.Description,
		BookmarkCount: counts[ch.ID],
	}
}

// Render turns collections loaded with their channels into responses
func (h *Handler) Render(collections []models.Collection) ([]CollectionResponse, error) {
	var channelIDs []uint
	for _, col := range collections {
		for _, ch := range col.Channels {
			channelIDs = append(channelIDs, ch.ID)
		}
	}
	counts, err := h.bookmarkCounts(channelIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]CollectionResponse, len(collections))
	for i, col := range collections {
		channels := make([]ChannelResponse, len(col.Channels))
		for j, ch := range col.Channels {
			channels[j] = channelToResponse(ch, counts)
		}
		responses[i] = CollectionResponse{
			ID:          col.ID,
			Name:        col.Name,
			Description: col.Description,
			Channels:    channels,
		}
	}
	return responses, nil
}

// ForUser loads a user's collections with their channels in creation order
func ForUser(db *gorm.DB, userID uint) ([]models.Collection, error) {
	var collections []models.Collection
	err := db.Preload("Channels", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("channels.id ASC")
	}).Where("user_id = ?", userID).Order("id ASC").Find(&collections).Error
	return collections, err
}

func (h *Handler) ownCollection(c *gin.Context) (*models.Collection, bool) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid collection ID"})
		return nil, false
	}

	var collection models.Collection
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&collection).Error; err != nil {
		apierr.Respond(c, apierr.NotFound("Collection"))
		return nil, false
	}
	return &collection, true
}

// List returns the caller's collections with their channels
// @Summary List collections
// @Tags collections
// @Produce json
// @Success 200 {array} CollectionResponse
// @Security BearerAuth
// @Router /collections [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	collections, err := ForUser(h.db, userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	responses, err := h.Render(collections)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, responses)
}

// Create creates a collection owned by the caller
// @Summary Create a collection
// @Tags collections
// @Accept json
// @Produce json
// @Param request body CreateCollectionRequest true "Collection details"
// @Success 201 {object} CollectionResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /collections [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	collection := models.Collection{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.db.Create(&collection).Error; err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, CollectionResponse{
		ID:          collection.ID,
		Name:        collection.Name,
		Description: collection.Description,
		Channels:    []ChannelResponse{},
	})
}

// Update renames or redescribes one of the caller's collections
// @Summary Update a collection
// @Tags collections
// @Accept json
// @Produce json
// @Param id path int true "Collection ID"
// @Param request body UpdateCollectionRequest true "Fields to change"
// @Success 200 {object} CollectionResponse
// @Failure 404 {object} map[string]string "Collection not found"
// @Security BearerAuth
// @Router /collections/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	collection, ok := h.ownCollection(c)
	if !ok {
		return
	}

	var req UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) > 0 {
		if err := h.db.Model(collection).Updates(updates).Error; err != nil {
			apierr.Respond(c, err)
			return
		}
	}

	if err := h.db.Preload("Channels").First(collection, collection.ID).Error; err != nil {
		apierr.Respond(c, err)
		return
	}
	responses, err := h.Render([]models.Collection{*collection})
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, responses[0])
}

// Channels lists the channels of one of the caller's collections
// @Summary List channels in a collection
// @Tags collections
// @Produce json
// @Param id path int true "Collection ID"
// @Success 200 {array} ChannelResponse
// @Failure 404 {object} map[string]string "Collection not found"
// @Security BearerAuth
// @Router /collections/{id}/channels [get]
func (h *Handler) Channels(c *gin.Context) {
	collection, ok := h.ownCollection(c)
	if !ok {
		return
	}

	var channels []models.Channel
	if err := h.db.Where("collection_id = ?", collection.ID).Order("id ASC").Find(&channels).Error; err != nil {
		apierr.Respond(c, err)
		return
	}

	ids := make([]uint, len(channels))
	for i, ch := range channels {
		ids[i] = ch.ID
	}
	counts, err := h.bookmarkCounts(ids)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	responses := make([]ChannelResponse, len(channels))
	for i, ch := range channels {
		responses[i] = channelToResponse(ch, counts)
	}
	c.JSON(http.StatusOK, responses)
}

// CreateChannel adds a channel to one of the caller's collections
// @Summary Create a channel
// @Tags collections
// @Accept json
// @Produce json
// @Param id path int true "Collection ID"
// @Param request body CreateChannelRequest true "Channel details"
// @Success 201 {object} ChannelResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Collection not found"
// @Security BearerAuth
// @Router /collections/{id}/channels [post]
func (h *Handler) CreateChannel(c *gin.Context) {
	collection, ok := h.ownCollection(c)
	if !ok {
		return
	}

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	channel := models.Channel{
		CollectionID: collection.ID,
		Name:         req.Name,
		Description:  req.Description,
	}
	if err := h.db.Create(&channel).Error; err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, channelToResponse(channel, nil))
}

// RegisterRoutes registers collection routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	collections := rg.Group("/collections", auth.AuthMiddleware())
	collections.GET("", h.List)
	collections.POST("", h.Create)
	collections.PATCH("/:id", h.Update)
	collections.GET("/:id/channels", h.Channels)
	collections.POST("/:id/channels", h.CreateChannel)
}
