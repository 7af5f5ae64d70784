package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utf4/dbay/internal/api/handlers"
	"github.com/utf4/dbay/internal/api/middleware"
	"github.com/utf4/dbay/internal/config"
	"github.com/utf4/dbay/internal/services"
)

// SetupRouter configures and returns the main Gin engine.
// The route shapes are fixed by the web UI: it addresses items via /items,
// /item/:id, /item/add, /update/:id and a bare DELETE /:id.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client) *gin.Engine {
	itemService := services.NewItemService(db, cfg, rdb)

	r := gin.Default()

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RequestIDMiddleware())

	restItemHandler := handlers.NewRestItemHandler(itemService)

	r.GET("/items", restItemHandler.GetItems)
	r.GET("/item/:id", restItemHandler.GetItemByID)
	r.POST("/item/add", restItemHandler.AddItem)
	r.POST("/update/:id", restItemHandler.UpdateItem)
	r.DELETE("/:id", restItemHandler.DeleteItem)

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	return r
}
