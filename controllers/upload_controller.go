package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/services"
	"github.com/kendall-kelly/barter-api/utils"
)

// UploadResponse describes a stored image
type UploadResponse struct {
	ImageKey string `json:"image_key"`
	ImageURL string `json:"image_url"`
}

// UploadController stores item images and avatars. uploadDir is where the
// local image service writes files; it is empty when images live in S3.
type UploadController struct {
	images    services.ImageService
	uploadDir string
}

func NewUploadController(images services.ImageService, uploadDir string) *UploadController {
	return &UploadController{images: images, uploadDir: uploadDir}
}

// UploadImage handles POST /api/v1/uploads - multipart field "image"
func (uc *UploadController) UploadImage(c *gin.Context) {
	if _, ok := requireCaller(c); !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondFailure(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the \"image\" field")
		return
	}

	key, err := uc.images.UploadImage(c.Request.Context(), fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := uc.images.GetImageURL(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, UploadResponse{ImageKey: key, ImageURL: url})
}

// GetUploadedImage handles GET /api/v1/uploads/:filename - serves locally stored images
func (uc *UploadController) GetUploadedImage(c *gin.Context) {
	filename := c.Param("filename")

	if filename == "" || uc.uploadDir == "" {
		respondFailure(c, http.StatusNotFound, "FILE_NOT_FOUND", "Image not found")
		return
	}

	// Prevent directory traversal
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		respondFailure(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename")
		return
	}

	if !utils.IsAllowedImage(filename) {
		respondFailure(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only image files are served")
		return
	}

	filePath := filepath.Join(uc.uploadDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		respondFailure(c, http.StatusNotFound, "FILE_NOT_FOUND", "Image not found")
		return
	}

	c.Header("Content-Type", utils.ContentType(filename))
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(filePath)
}
