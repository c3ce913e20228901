package api

import (
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"docshelf/internal/server/config"
	"docshelf/internal/server/metrics"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
// blobDir, when non-empty, is served read-only under /blobs.
func SetupRouter(handler *Handler, cfg *config.Config, blobDir string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	e.Use(RequestLogger())

	// Rate limiter on upload endpoint only
	uploadLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Health & metrics
	e.GET("/health", handler.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Folders
	e.POST("/folder/create", handler.HandleCreateFolder)
	e.GET("/folders", handler.HandleListFolders)
	e.GET("/folders/:folderId", handler.HandleGetFolder)
	e.PUT("/folders/:folderId", handler.HandleUpdateFolder)
	e.DELETE("/folders/:folderId", handler.HandleDeleteFolder)

	// Files (upload is rate-limited)
	e.POST("/folders/:folderId/files", handler.HandleUploadFile, uploadLimiter.Middleware())
	e.GET("/folders/:folderId/files", handler.HandleListFiles)
	e.GET("/folders/:folderId/files/metadata", handler.HandleFilesMetadata)
	e.PUT("/folders/:folderId/files/:fileId", handler.HandleUpdateFile)
	e.DELETE("/folders/:folderId/files/:fileId", handler.HandleDeleteFile)
	e.GET("/folders/:folderId/filesBySort", handler.HandleFilesBySort)
	e.GET("/files", handler.HandleFilesByType)

	// Blob content for the filesystem backend
	if blobDir != "" {
		e.StaticFS("/blobs", os.DirFS(blobDir))
	}

	return e
}
