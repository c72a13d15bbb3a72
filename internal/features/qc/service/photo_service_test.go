package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/features/qc/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, data []byte, opts ports.UploadOptions) (string, error) {
	args := m.Called(ctx, data, opts)
	return args.String(0), args.Error(1)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000000000")

func TestPhotoService_Upload(t *testing.T) {
	logger.Init("development", "error")
	storage := new(MockStorage)
	svc := NewPhotoService(storage, time.Second)

	storage.On("Upload", mock.Anything, pngHeader, ports.UploadOptions{
		Folder: "qc/rto/r1", ContentType: "image/png", FileName: "front.png",
	}).Return("https://cdn/qc/rto/r1/front.png", nil).Once()

	urls, err := svc.Upload(context.Background(), "qc/rto/r1", []Photo{{FileName: "front.png", Data: pngHeader}})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/qc/rto/r1/front.png"}, urls)
	storage.AssertExpectations(t)
}

func TestPhotoService_RejectsInvalidBeforeUploading(t *testing.T) {
	logger.Init("development", "error")
	storage := new(MockStorage)
	svc := NewPhotoService(storage, time.Second)

	_, err := svc.Upload(context.Background(), "qc", []Photo{
		{FileName: "ok.png", Data: pngHeader},
		{FileName: "notes.txt", Data: []byte("plain text")},
	})
	require.ErrorIs(t, err, apperror.ErrValidation)
	e, _ := apperror.As(err)
	assert.Contains(t, e.Fields, "photos[1]")
	storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)

	_, err = svc.Upload(context.Background(), "qc", nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestPhotoService_StorageFailure(t *testing.T) {
	logger.Init("development", "error")
	storage := new(MockStorage)
	svc := NewPhotoService(storage, time.Second)

	storage.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket unavailable"))

	_, err := svc.Upload(context.Background(), "qc", []Photo{{FileName: "a.png", Data: pngHeader}})
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}
