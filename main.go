package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/utf4/dbay/internal/api"
	"github.com/utf4/dbay/internal/cache"
	"github.com/utf4/dbay/internal/config"
	"github.com/utf4/dbay/internal/db"
	"github.com/utf4/dbay/internal/marketapi"
	"github.com/utf4/dbay/internal/node"
	"github.com/utf4/dbay/internal/publish"
)

var (
	runMode      = flag.String("m", "api", "Run mode: 'api' (persistence service), 'publish' (one-shot listing publication), 'all'")
	listingName  = flag.String("name", "", "Listing title (publish mode)")
	listingPrice = flag.String("price", "", "Asking price (publish mode)")
	imagePath    = flag.String("image", "", "Path to the listing image (publish mode)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	switch cfg.RunMode {
	case "api", "all":
		runAPI(cfg)
	case "publish":
		runPublish(cfg)
	default:
		log.Fatalf("Invalid run mode specified: %s.", cfg.RunMode)
	}
}

// runAPI starts the item/listing persistence service and blocks until a
// shutdown signal arrives.
func runAPI(cfg *config.Config) {
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	// The Redis read cache is optional; the service runs uncached without it.
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("WARN: Redis unavailable, running without read cache: %v", err)
		redisClient = nil
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	router := api.SetupRouter(cfg, mongoDb, redisClient)
	srv := &http.Server{
		Addr:    ":" + cfg.ApiPort,
		Handler: router,
	}

	go func() {
		fmt.Printf("Market API listening on :%s\n", cfg.ApiPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Market API ListenAndServe error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Market API server shutdown error: %v", err)
	}
	fmt.Println("Server gracefully stopped")
}

// runPublish performs one listing publication: resolve host identity and
// wallet address from the node, collect the form fields from flags, then
// create and broadcast the listing.
func runPublish(cfg *config.Config) {
	nodeClient := node.NewClient(cfg.NodeURL)
	market := marketapi.NewClient(cfg.MarketURL)
	pipeline := publish.NewPipeline(market, nodeClient)
	controller := publish.NewController(nodeClient, nodeClient, pipeline)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Until both readiness signals resolve there is nothing to interact
	// with, only a wait.
	for !controller.Ready() {
		controller.Resolve(ctx)
		if controller.Ready() {
			break
		}
		select {
		case <-ctx.Done():
			log.Fatalf("Host identity or wallet address never resolved: %v", ctx.Err())
		case <-time.After(time.Second):
			fmt.Println("Waiting for host identity and wallet address...")
		}
	}

	controller.SetName(*listingName)
	controller.SetAskingPrice(*listingPrice)

	if *imagePath != "" {
		f, err := os.Open(*imagePath)
		if err != nil {
			log.Fatalf("Failed to open image %s: %v", *imagePath, err)
		}
		defer f.Close()
		contentType := mime.TypeByExtension(filepath.Ext(*imagePath))
		// A type outside the allow-list is silently dropped and the
		// listing goes out without an image.
		controller.AttachImage(contentType, f)
	}

	if err := controller.Submit(ctx); err != nil {
		log.Fatalf("Publication failed: %v", err)
	}
	fmt.Println("Listing created and shared!")
	controller.Acknowledge()
}
