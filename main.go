package main

import (
	"context"
	"log"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"recipebook/api"
	"recipebook/cache"
	"recipebook/common"
	"recipebook/database"
	"recipebook/media"
	"recipebook/recipes"
	"recipebook/site"
)

func main() {
	cfg := common.LoadConfig()

	db := common.ConnectDb(cfg)
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	if err := database.SeedCategories(db); err != nil {
		log.Fatal("Failed to seed categories:", err)
	}

	fileStore, err := newFileStore(cfg)
	if err != nil {
		log.Fatal("Failed to set up file storage:", err)
	}

	pageCache := cache.NewPageCache(cfg.CacheDir, cfg.PageCacheMaxAge())
	if err := pageCache.Prune(); err != nil {
		log.Printf("Failed to prune page cache: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("SESSION_SECRET environment variable not set")
		}
		log.Println("SESSION_SECRET not set, using an insecure development secret")
		cfg.SessionSecret = "development-only-secret"
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
	})

	router.Use(sessions.Sessions("recipebook-session", store))
	router.Use(pageCache.Middleware())

	router.SetFuncMap(site.FuncMap())
	router.LoadHTMLGlob("*/views/*.html")

	router.Static("/public", "./public")
	media.RegisterRoutes(router, fileStore)

	service := recipes.NewService(recipes.NewRepository(db), fileStore, pageCache)

	apiModule := api.NewAPIModule(service)
	apiModule.RegisterRoutes(router)

	siteModule := site.NewSiteModule(service)
	siteModule.RegisterRoutes(router)

	log.Printf("Starting server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func newFileStore(cfg *common.Config) (media.Store, error) {
	if cfg.StorageDriver == "s3" {
		log.Printf("storing uploads in s3 bucket %s", cfg.AWSS3Bucket)
		return media.NewS3Store(context.Background(), media.S3Config{
			Bucket:    cfg.AWSS3Bucket,
			Region:    cfg.AWSS3Region,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Endpoint:  cfg.AWSS3Endpoint,
		})
	}
	log.Printf("storing uploads in %s", cfg.UploadDir)
	return media.NewDiskStore(cfg.UploadDir)
}
