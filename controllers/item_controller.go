package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/models"
	"github.com/kendall-kelly/barter-api/services"
	"github.com/kendall-kelly/barter-api/utils"
)

// CreateItemRequest represents the request body for listing an item
type CreateItemRequest struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageKey    string  `json:"image_key"`
}

// ItemController serves the item catalog
type ItemController struct {
	catalog services.ItemCatalog
	images  services.ImageService
	media   *services.MediaResolver
}

func NewItemController(catalog services.ItemCatalog, images services.ImageService, media *services.MediaResolver) *ItemController {
	return &ItemController{catalog: catalog, images: images, media: media}
}

// CreateItem handles POST /api/v1/items
func (ic *ItemController) CreateItem(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}

	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, "Invalid request data")
		return
	}

	// only keys handed out by POST /uploads may be attached
	imageKey := strings.TrimSpace(req.ImageKey)
	if imageKey != "" && !strings.HasPrefix(imageKey, utils.UploadKeyPrefix) {
		respondFailure(c, http.StatusBadRequest, "INVALID_IMAGE_KEY", "image_key must come from an upload")
		return
	}

	item := models.Item{
		OwnerID:     callerID,
		Title:       req.Title,
		Category:    req.Category,
		Price:       req.Price,
		Description: req.Description,
		ImageKey:    imageKey,
	}
	if err := ic.catalog.Create(c.Request.Context(), &item); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, ic.media.ItemView(c.Request.Context(), item, true))
}

// ListItems handles GET /api/v1/items - available items of other users, newest first
func (ic *ItemController) ListItems(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}

	items, err := ic.catalog.ListAvailable(c.Request.Context(), callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]models.ListedItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.ListedItem{
			ItemView:    ic.media.ItemView(c.Request.Context(), item, true),
			OwnerName:   item.Owner.DisplayName(),
			OwnerAvatar: ic.media.URL(c.Request.Context(), item.Owner.AvatarURL),
		})
	}
	respondOK(c, http.StatusOK, out)
}

// ListMyItems handles GET /api/v1/items/mine - the caller's items that can still be offered
func (ic *ItemController) ListMyItems(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}

	items, err := ic.catalog.ListAvailableByOwner(c.Request.Context(), callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]models.ItemView, 0, len(items))
	for _, item := range items {
		out = append(out, ic.media.ItemView(c.Request.Context(), item, true))
	}
	respondOK(c, http.StatusOK, out)
}

// GetItem handles GET /api/v1/items/:id
func (ic *ItemController) GetItem(c *gin.Context) {
	if _, ok := requireCaller(c); !ok {
		return
	}
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}

	item, err := ic.catalog.Lookup(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, ic.media.ItemView(c.Request.Context(), *item, true))
}

// ListUserItems handles GET /api/v1/items/user/:user_id - every item of a user
// whatever its status, newest first
func (ic *ItemController) ListUserItems(c *gin.Context) {
	if _, ok := requireCaller(c); !ok {
		return
	}
	ownerID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	items, err := ic.catalog.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]models.ItemView, 0, len(items))
	for _, item := range items {
		out = append(out, ic.media.ItemView(c.Request.Context(), item, true))
	}
	respondOK(c, http.StatusOK, out)
}

// DeleteItem handles DELETE /api/v1/items/:id
func (ic *ItemController) DeleteItem(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}

	item, err := ic.catalog.Delete(c.Request.Context(), itemID, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	// the row is gone; a leftover image is only logged
	if ic.images != nil && strings.HasPrefix(item.ImageKey, utils.UploadKeyPrefix) {
		if err := ic.images.DeleteImage(c.Request.Context(), item.ImageKey); err != nil {
			slog.Warn("failed to delete item image", "item_id", item.ID, "key", item.ImageKey, "error", err)
		}
	}

	slog.Info("item deleted", "item_id", item.ID, "owner_id", callerID)
	respondOK(c, http.StatusOK, gin.H{"id": item.ID})
}
