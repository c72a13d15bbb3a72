package ports

import "context"

// UploadOptions describes where an object is stored.
type UploadOptions struct {
	Folder      string
	ContentType string
	FileName    string
}

// Storage is the object storage collaborator used for QC evidence.
type Storage interface {
	// Upload stores data and returns its public URL.
	Upload(ctx context.Context, data []byte, opts UploadOptions) (string, error)
}
