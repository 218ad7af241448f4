package controllers

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/services"
	"github.com/ironworks/ironworks-api/utils"
	"github.com/shopspring/decimal"
)

// isMultipart reports whether the request carries a multipart form
func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formImages returns the files sent under "images" or "image"
func formImages(c *gin.Context) []*multipart.FileHeader {
	if !isMultipart(c) {
		return nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	files := append([]*multipart.FileHeader{}, form.File["images"]...)
	return append(files, form.File["image"]...)
}

// storeImages uploads files into folder. On failure the images already stored are removed.
func storeImages(ctx context.Context, files []*multipart.FileHeader, folder string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	imageService := services.GetImageService()
	if imageService == nil {
		return nil, errors.New("image storage is not configured")
	}

	keys := make([]string, 0, len(files))
	for _, fh := range files {
		key, err := imageService.UploadImage(ctx, fh, folder)
		if err != nil {
			discardImages(ctx, keys)
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// discardImages deletes stored images, logging the ones that could not be removed
func discardImages(ctx context.Context, keys []string) {
	imageService := services.GetImageService()
	if imageService == nil {
		return
	}
	for _, key := range keys {
		if err := imageService.DeleteImage(ctx, key); err != nil {
			log.Printf("Failed to delete image %s: %v", key, err)
		}
	}
}

// imageURL resolves a storage key to a URL, or "" when it cannot be resolved
func imageURL(ctx context.Context, key string) string {
	imageService := services.GetImageService()
	if imageService == nil || key == "" {
		return ""
	}
	url, err := imageService.GetImageURL(ctx, key)
	if err != nil {
		log.Printf("Failed to resolve image %s: %v", key, err)
		return ""
	}
	return url
}

// respondImageError reports a rejected or failed upload
func respondImageError(c *gin.Context, err error) {
	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message, nil)
		return
	}
	log.Printf("Image upload failed: %v", err)
	respondError(c, http.StatusInternalServerError, "IMAGE_UPLOAD_ERROR", "Failed to store image", nil)
}

// Form readers return nil when the field is absent so that updates stay partial

func formString(c *gin.Context, key string) *string {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &value
}

func formInt(c *gin.Context, key string) (*int, error) {
	value, ok := c.GetPostForm(key)
	if !ok || value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, errors.New(key + " must be a whole number")
	}
	return &n, nil
}

func formDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	value, ok := c.GetPostForm(key)
	if !ok || value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, errors.New(key + " must be a number")
	}
	return &d, nil
}

func formFlag(c *gin.Context, key string) *utils.Flag {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	flag := utils.Flag(utils.ParseBool(value))
	return &flag
}
