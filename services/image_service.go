package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/kendall-kelly/barter-api/models"
	"github.com/kendall-kelly/barter-api/utils"
)

// ImageService handles item images and avatars: upload, URL resolution, deletion
type ImageService interface {
	// UploadImage validates and stores an image file, returns the storage key
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL returns a URL a client can fetch the image from
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// S3ImageService implements ImageService using AWS S3 for storage
type S3ImageService struct {
	s3Service S3Interface
}

func NewS3ImageService(s3Service S3Interface) *S3ImageService {
	return &S3ImageService{s3Service: s3Service}
}

func (s *S3ImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	s3Key, err := s.s3Service.UploadFile(ctx, fileHeader)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return s3Key, nil
}

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

func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// LocalImageService keeps uploads in a directory served by GET /api/v1/uploads/:filename
type LocalImageService struct {
	dir     string
	baseURL string
}

func NewLocalImageService(dir, baseURL string) *LocalImageService {
	return &LocalImageService{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir is the directory uploads are written to
func (s *LocalImageService) Dir() string {
	return s.dir
}

func (s *LocalImageService) UploadImage(_ context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	filename, err := utils.SaveUploadedFile(fileHeader, s.dir)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return utils.UploadKeyPrefix + filename, nil
}

func (s *LocalImageService) GetImageURL(_ context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	return s.baseURL + utils.GetImageURL(filepath.Base(imageKey)), nil
}

func (s *LocalImageService) DeleteImage(_ context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(imageKey)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// MediaResolver turns stored image references into client-facing URLs.
// Absolute URLs pass through, upload keys go to the image service and any
// other relative path (such as the default avatar) is prefixed with the
// public base URL.
type MediaResolver struct {
	images  ImageService
	baseURL string
}

func NewMediaResolver(images ImageService, baseURL string) *MediaResolver {
	return &MediaResolver{images: images, baseURL: strings.TrimRight(baseURL, "/")}
}

// URL never fails; an unresolvable key becomes an empty string and is logged
func (r *MediaResolver) URL(ctx context.Context, ref string) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, utils.UploadKeyPrefix) && r.images != nil:
		url, err := r.images.GetImageURL(ctx, ref)
		if err != nil {
			slog.Warn("failed to resolve image url", "key", ref, "error", err)
			return ""
		}
		return url
	case r.baseURL == "":
		return ref
	default:
		return r.baseURL + "/" + strings.TrimLeft(ref, "/")
	}
}

// ItemView renders item with its image resolved. The full view adds owner,
// category, status and creation time.
func (r *MediaResolver) ItemView(ctx context.Context, item models.Item, full bool) models.ItemView {
	view := models.ItemView{
		ID:          item.ID,
		Title:       item.Title,
		Price:       item.Price,
		Description: item.Description,
		ImageURL:    r.URL(ctx, item.ImageKey),
	}
	if full {
		created := item.CreatedAt
		view.OwnerID = item.OwnerID
		view.Category = item.Category
		view.Status = item.Status
		view.CreatedAt = &created
	}
	return view
}

// UserView renders user with the avatar resolved; email only when asked for
func (r *MediaResolver) UserView(ctx context.Context, user models.User, withEmail bool) models.UserView {
	view := models.UserView{
		ID:        user.ID,
		Name:      user.DisplayName(),
		AvatarURL: r.URL(ctx, user.AvatarURL),
	}
	if withEmail {
		view.Email = user.Email
	}
	return view
}
