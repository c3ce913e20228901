package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"docshelf/internal/server/database"
	"docshelf/internal/server/logging"
	"docshelf/internal/server/service"
)

// Handler contains the HTTP handlers for the docshelf API.
type Handler struct {
	folders *service.FolderService
	files   *service.FileService
	repo    database.Repository
}

// NewHandler creates a new handler with the given service dependencies.
func NewHandler(folders *service.FolderService, files *service.FileService, repo database.Repository) *Handler {
	return &Handler{folders: folders, files: files, repo: repo}
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type createFolderRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	MaxFileLimit int    `json:"maxFileLimit"`
}

type updateFolderRequest struct {
	Name         *string `json:"name"`
	MaxFileLimit *int    `json:"maxFileLimit"`
}

type updateFileRequest struct {
	Description string `json:"description"`
}

// --- Folders ---

// HandleCreateFolder handles POST /folder/create.
func (h *Handler) HandleCreateFolder(c echo.Context) error {
	var req createFolderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body", err)
	}

	folder, err := h.folders.Create(c.Request().Context(), service.CreateFolderInput{
		Name:         req.Name,
		Type:         req.Type,
		MaxFileLimit: req.MaxFileLimit,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Folder created successfully",
		"folder":  folder,
	})
}

// HandleListFolders handles GET /folders.
func (h *Handler) HandleListFolders(c echo.Context) error {
	folders, err := h.folders.List(c.Request().Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, folders)
}

// HandleGetFolder handles GET /folders/:folderId.
func (h *Handler) HandleGetFolder(c echo.Context) error {
	folder, err := h.folders.Get(c.Request().Context(), c.Param("folderId"))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Folder retrieved successfully",
		"folder":  folder,
	})
}

// HandleUpdateFolder handles PUT /folders/:folderId.
// Only the fields present in the body are changed.
func (h *Handler) HandleUpdateFolder(c echo.Context) error {
	var req updateFolderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body", err)
	}

	folder, err := h.folders.Update(c.Request().Context(), c.Param("folderId"), service.UpdateFolderInput{
		Name:         req.Name,
		MaxFileLimit: req.MaxFileLimit,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Folder updated successfully",
		"folder":  folder,
	})
}

// HandleDeleteFolder handles DELETE /folders/:folderId.
func (h *Handler) HandleDeleteFolder(c echo.Context) error {
	if err := h.folders.Delete(c.Request().Context(), c.Param("folderId")); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Folder deleted successfully"})
}

// --- Files ---

// HandleUploadFile handles POST /folders/:folderId/files.
// Accepts a multipart form with a "file" field and optional "description" field.
func (h *Handler) HandleUploadFile(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		// An unknown folder is reported before a malformed form
		if _, err := h.folders.Get(c.Request().Context(), c.Param("folderId")); err != nil {
			return mapServiceError(c, err)
		}
		return badRequest(c, "file is required (use form field 'file')", nil)
	}

	src, err := fileHeader.Open()
	if err != nil {
		logging.L().Error("failed to open uploaded file", logging.Err(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to read uploaded file"})
	}
	defer src.Close()

	file, err := h.files.Upload(c.Request().Context(), c.Param("folderId"), service.UploadInput{
		Name:        fileHeader.Filename,
		MimeType:    fileHeader.Header.Get(echo.HeaderContentType),
		Description: c.FormValue("description"),
		Size:        fileHeader.Size,
		Content:     src,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "File uploaded successfully",
		"file":    file,
	})
}

// HandleUpdateFile handles PUT /folders/:folderId/files/:fileId.
func (h *Handler) HandleUpdateFile(c echo.Context) error {
	var req updateFileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body", err)
	}

	file, err := h.files.UpdateDescription(c.Request().Context(), c.Param("folderId"), c.Param("fileId"), req.Description)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "File description updated successfully",
		"file":    file,
	})
}

// HandleDeleteFile handles DELETE /folders/:folderId/files/:fileId.
func (h *Handler) HandleDeleteFile(c echo.Context) error {
	if err := h.files.Delete(c.Request().Context(), c.Param("folderId"), c.Param("fileId")); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "File deleted successfully"})
}

// HandleListFiles handles GET /folders/:folderId/files.
func (h *Handler) HandleListFiles(c echo.Context) error {
	files, err := h.files.ListByFolder(c.Request().Context(), c.Param("folderId"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleFilesBySort handles GET /folders/:folderId/filesBySort?sort=size|uploadedAt.
func (h *Handler) HandleFilesBySort(c echo.Context) error {
	files, err := h.files.SortedByFolder(c.Request().Context(), c.Param("folderId"), c.QueryParam("sort"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleFilesByType handles GET /files?type=<subtype>.
func (h *Handler) HandleFilesByType(c echo.Context) error {
	files, err := h.files.ListByType(c.Request().Context(), c.QueryParam("type"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"files": files})
}

// HandleFilesMetadata handles GET /folders/:folderId/files/metadata.
func (h *Handler) HandleFilesMetadata(c echo.Context) error {
	files, err := h.files.MetadataByFolder(c.Request().Context(), c.Param("folderId"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"files": files})
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including metadata store connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.repo.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = "error: " + err.Error()
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

func badRequest(c echo.Context, message string, err error) error {
	resp := errorResponse{Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(http.StatusBadRequest, resp)
}

// mapServiceError translates service-layer errors into appropriate HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	for _, m := range []struct {
		sentinel error
		status   int
	}{
		{service.ErrValidation, http.StatusBadRequest},
		{service.ErrConflict, http.StatusBadRequest},
		{service.ErrCapacity, http.StatusBadRequest},
		{service.ErrTypeMismatch, http.StatusBadRequest},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrUpstream, http.StatusBadGateway},
	} {
		if errors.Is(err, m.sentinel) {
			return c.JSON(m.status, errorResponse{
				Message: strings.TrimPrefix(err.Error(), m.sentinel.Error()+": "),
				Error:   m.sentinel.Error(),
			})
		}
	}

	logging.L().Error("unhandled service error",
		logging.String("method", c.Request().Method),
		logging.String("path", c.Path()),
		logging.Err(err),
	)
	return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
}
