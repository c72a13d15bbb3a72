package handler

import (
	"fmt"
	"io"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/features/qc/service"

	"github.com/gofiber/fiber/v2"
)

// PhotoField is the multipart field carrying QC photos.
const PhotoField = "photos"

// ReadPhotos loads the QC photos of a multipart request into memory.
// Oversized files are cut at one byte past the limit so validation rejects
// them without reading the rest.
func ReadPhotos(c *fiber.Ctx) ([]service.Photo, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperror.Validation("invalid multipart form", map[string]string{PhotoField: "multipart form expected"})
	}

	files := form.File[PhotoField]
	photos := make([]service.Photo, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open photo %d: %w", i, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, service.MaxPhotoBytes+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read photo %d: %w", i, err)
		}
		photos = append(photos, service.Photo{FileName: fh.Filename, Data: data})
	}
	return photos, nil
}
