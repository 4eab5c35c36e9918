package controller

import (
	"net/http"

	apperrors "github.com/flexystyles/storefront-backend/internal/errors"
	"github.com/flexystyles/storefront-backend/internal/middleware"
	"github.com/flexystyles/storefront-backend/internal/storage"
	"github.com/gin-gonic/gin"
)

const productImageFolder = "products"

type UploadController struct {
	storage storage.ImageStorage
}

func NewUploadController(storage storage.ImageStorage) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// UploadImage stores a multipart "file" and returns its public URL (Admin only)
// POST /api/v1/admin/uploads
func (ctrl *UploadController) UploadImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	header, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFile, "A file is required")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if err := storage.ValidateContentType(contentType, storage.AllowedImageTypes); err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFile, "Only image files are allowed (JPEG, PNG, GIF, WEBP)")
		return
	}
	if err := storage.ValidateFileSize(header.Size, storage.MaxImageSize); err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFile, err.Error())
		return
	}

	file, err := header.Open()
	if err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFile, "The file could not be read")
		return
	}
	defer file.Close()

	url, err := ctrl.storage.Upload(c.Request.Context(), productImageFolder, header.Filename, contentType, file)
	if err != nil {
		log.Error("Failed to upload image", err, map[string]interface{}{
			"filename": header.Filename,
		})
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.UploadFailed, "The image could not be uploaded")
		return
	}

	log.Info("Image uploaded", map[string]interface{}{
		"filename": header.Filename,
		"url":      url,
	})

	c.JSON(http.StatusCreated, gin.H{
		"url": url,
	})
}

// GeneratePresignedURL returns a URL the browser can PUT an image to (Admin only)
// POST /api/v1/admin/uploads/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "filename and content_type are required")
		return
	}
	if err := storage.ValidateContentType(req.ContentType, storage.AllowedImageTypes); err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFile, "Only image files are allowed (JPEG, PNG, GIF, WEBP)")
		return
	}

	response, err := ctrl.storage.PresignUpload(c.Request.Context(), productImageFolder, req.Filename, req.ContentType)
	if err != nil {
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename": req.Filename,
		})
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.UploadFailed, "Upload could not be prepared")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_url": response.UploadURL,
		"file_url":   response.FileURL,
		"key":        response.Key,
	})
}
