// Package source reads documents (form definitions, OpenAPI descriptions)
// from a local path, an fs.FS or an http(s) URL.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Kind string

const (
	KindFile Kind = "file"
	KindFS   Kind = "fs"
	KindURL  Kind = "url"
)

// Reader fetches documents. The zero value reads local files only.
type Reader struct {
	FS      fs.FS
	HTTP    *http.Client
	Timeout time.Duration
}

// KindOf classifies location. Paths are read from FS when one is set.
func (r Reader) KindOf(location string) Kind {
	location = strings.TrimSpace(location)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return KindURL
	}
	if r.FS != nil {
		return KindFS
	}
	return KindFile
}

// Read returns the content at location.
func (r Reader) Read(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("source: location is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch r.KindOf(location) {
	case KindURL:
		if r.HTTP == nil {
			return nil, errors.New("source: http support disabled")
		}
		return r.readHTTP(ctx, location)
	case KindFS:
		return fs.ReadFile(r.FS, strings.TrimPrefix(filepath.ToSlash(location), "/"))
	default:
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(abs)
	}
}

func (r Reader) readHTTP(ctx context.Context, url string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("source: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
