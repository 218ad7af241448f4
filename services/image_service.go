package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/ironworks/ironworks-api/utils"
)

// Image folders, one per owning resource
const (
	FolderMaterials = "materials"
	FolderEmployees = "employees"
	FolderMachines  = "machines"
	FolderCustomers = "customers"
)

// ImageService handles image upload, retrieval and deletion
type ImageService interface {
	// UploadImage validates and stores an image under folder, returns the storage key
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

var imageServiceInstance ImageService

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// S3ImageService implements ImageService on top of S3
type S3ImageService struct {
	s3Service S3Interface
}

// InitImageService installs an S3 backed image service
func InitImageService(s3Service S3Interface) ImageService {
	imageServiceInstance = &S3ImageService{s3Service: s3Service}
	return imageServiceInstance
}

// UploadImage validates and uploads an image file to S3
func (s *S3ImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	key, err := s.s3Service.UploadFile(ctx, fileHeader, folder)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// GetImageURL generates a presigned URL for accessing an image
func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3Service.GetPresignedURL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage deletes an image from S3
func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// LocalImageService keeps images on local disk and serves them under /api/uploads
type LocalImageService struct {
	dir string
}

// InitLocalImageService installs a disk backed image service rooted at dir
func InitLocalImageService(dir string) ImageService {
	utils.UploadDir = dir
	imageServiceInstance = &LocalImageService{dir: dir}
	return imageServiceInstance
}

// UploadImage validates and saves an image file; the folder is not used on disk
func (s *LocalImageService) UploadImage(_ context.Context, fileHeader *multipart.FileHeader, _ string) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	name, err := utils.SaveUploadedFile(fileHeader, s.dir)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return name, nil
}

// GetImageURL returns the public path of a stored image
func (s *LocalImageService) GetImageURL(_ context.Context, imageKey string) (string, error) {
	return utils.GetImageURL(imageKey), nil
}

// DeleteImage removes a stored image file
func (s *LocalImageService) DeleteImage(_ context.Context, imageKey string) error {
	return utils.RemoveUploadedFile(imageKey, s.dir)
}
