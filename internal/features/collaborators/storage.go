package collaborators

import (
	"context"
	"errors"
	"time"

	"reverse-logistics/internal/features/qc/ports"
)

// StorageClient uploads QC evidence to object storage.
type StorageClient struct {
	client
}

// NewStorageClient creates a StorageClient for baseURL.
func NewStorageClient(baseURL string, timeout time.Duration) *StorageClient {
	return &StorageClient{client: newClient("storage", baseURL, timeout)}
}

type upload struct {
	Folder      string `json:"folder"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
	// Data is base64 encoded by encoding/json.
	Data []byte `json:"data"`
}

// Upload implements ports.Storage.
func (c *StorageClient) Upload(ctx context.Context, data []byte, opts ports.UploadOptions) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	err := c.post(ctx, "/objects", upload{
		Folder:      opts.Folder,
		ContentType: opts.ContentType,
		FileName:    opts.FileName,
		Data:        data,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", errors.New("storage returned an empty url")
	}
	return resp.URL, nil
}
