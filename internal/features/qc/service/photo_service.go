package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/features/qc/ports"

	"go.uber.org/zap"
)

const (
	// MaxPhotoBytes bounds a single evidence photo.
	MaxPhotoBytes = 5 << 20
	// MaxPhotosPerUpload bounds one upload request.
	MaxPhotosPerUpload = 10
)

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Photo is one evidence file received from the warehouse.
type Photo struct {
	FileName string
	Data     []byte
}

// PhotoService validates and stores QC evidence photos.
type PhotoService struct {
	storage ports.Storage
	timeout time.Duration
	logger  *zap.Logger
}

// NewPhotoService creates a PhotoService. timeout bounds each upload.
func NewPhotoService(storage ports.Storage, timeout time.Duration) *PhotoService {
	return &PhotoService{
		storage: storage,
		timeout: timeout,
		logger:  logger.Get().Named("qc_photos"),
	}
}

// Upload stores photos under folder and returns their URLs in order. Nothing
// is uploaded unless every photo is valid.
func (s *PhotoService) Upload(ctx context.Context, folder string, photos []Photo) ([]string, error) {
	if len(photos) == 0 {
		return nil, apperror.Validation("no photos provided", map[string]string{"photos": "at least one photo is required"})
	}
	if len(photos) > MaxPhotosPerUpload {
		return nil, apperror.Validation("too many photos", map[string]string{
			"photos": fmt.Sprintf("at most %d photos per upload", MaxPhotosPerUpload),
		})
	}

	types := make([]string, len(photos))
	fields := map[string]string{}
	for i, p := range photos {
		key := fmt.Sprintf("photos[%d]", i)
		if len(p.Data) == 0 {
			fields[key] = "file is empty"
			continue
		}
		if len(p.Data) > MaxPhotoBytes {
			fields[key] = "file exceeds 5MB"
			continue
		}
		ct := http.DetectContentType(p.Data)
		if !allowedContentTypes[ct] {
			fields[key] = "unsupported content type " + ct
			continue
		}
		types[i] = ct
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("invalid photos", fields)
	}

	urls := make([]string, 0, len(photos))
	for i, p := range photos {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		url, err := s.storage.Upload(callCtx, p.Data, ports.UploadOptions{
			Folder:      folder,
			ContentType: types[i],
			FileName:    p.FileName,
		})
		cancel()
		if err != nil {
			s.logger.Error("Photo upload failed",
				zap.String("folder", folder),
				zap.Int("index", i),
				zap.Error(err),
			)
			return nil, apperror.Upstream("storage", err)
		}
		urls = append(urls, url)
	}

	return urls, nil
}
