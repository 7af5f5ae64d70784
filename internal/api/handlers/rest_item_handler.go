package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utf4/dbay/internal/api/middleware"
	"github.com/utf4/dbay/internal/models"
	"github.com/utf4/dbay/internal/services"
)

// RestItemHandler handles REST requests for items and listings.
type RestItemHandler struct {
	itemService services.IItemService
}

// NewRestItemHandler creates a new RestItemHandler.
func NewRestItemHandler(itemService services.IItemService) *RestItemHandler {
	return &RestItemHandler{itemService: itemService}
}

// GetItems handles GET /items
func (h *RestItemHandler) GetItems(c *gin.Context) {
	items, err := h.itemService.FindAll(c.Request.Context())
	if err != nil {
		log.Printf("[%s] Failed to list items: %v", middleware.RequestID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list items"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetItemByID handles GET /item/:id
// An absent record, like a malformed id, answers with a null body: the id
// simply addresses nothing. Only store errors are surfaced as failures.
func (h *RestItemHandler) GetItemByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	item, err := h.itemService.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusOK, nil)
			return
		}
		log.Printf("[%s] Failed to retrieve item %s: %v", middleware.RequestID(c), id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve item"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// AddItem handles POST /item/add
func (h *RestItemHandler) AddItem(c *gin.Context) {
	var item models.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	id, err := h.itemService.Create(c.Request.Context(), &item)
	if err != nil {
		log.Printf("[%s] Failed to create item: %v", middleware.RequestID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create item"})
		return
	}

	c.JSON(http.StatusOK, models.InsertAck{Acknowledged: true, InsertedID: id.Hex()})
}

// UpdateItem handles POST /update/:id
func (h *RestItemHandler) UpdateItem(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		// Malformed ids address nothing; acknowledge zero matches.
		c.JSON(http.StatusOK, models.UpdateAck{})
		return
	}

	ack, err := h.itemService.UpdateByID(c.Request.Context(), id, updates)
	if err != nil {
		log.Printf("[%s] Failed to update item %s: %v", middleware.RequestID(c), id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
		return
	}
	c.JSON(http.StatusOK, ack)
}

// DeleteItem handles DELETE /:id
func (h *RestItemHandler) DeleteItem(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusOK, models.DeleteAck{DeletedCount: 0})
		return
	}

	count, err := h.itemService.DeleteByID(c.Request.Context(), id)
	if err != nil {
		log.Printf("[%s] Failed to delete item %s: %v", middleware.RequestID(c), id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
		return
	}
	c.JSON(http.StatusOK, models.DeleteAck{DeletedCount: count})
}
