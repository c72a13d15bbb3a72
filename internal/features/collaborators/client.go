// Package collaborators holds the HTTP clients for the services the
// workflows call out to: courier, payment, notification, inventory and
// storage.
package collaborators

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reverse-logistics/internal/core/httpclient"
)

// client is the JSON-over-HTTP base shared by every collaborator.
type client struct {
	service string
	baseURL string
	http    *http.Client
}

func newClient(service, baseURL string, timeout time.Duration) client {
	return client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.NewClient(timeout),
	}
}

func (c client) post(ctx context.Context, path string, in, out any) error {
	if err := httpclient.DoJSON(ctx, c.http, http.MethodPost, c.baseURL+path, in, out); err != nil {
		return fmt.Errorf("%s %s: %w", c.service, path, err)
	}
	return nil
}

// isStatus reports whether err is a collaborator response with code.
func isStatus(err error, code int) bool {
	var se *httpclient.StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
