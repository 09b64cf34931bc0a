// Package netx talks to object storage over presigned URLs.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// MaxExportSize caps how much of a presigned object is read.
const MaxExportSize = 32 << 20

// Client is the HTTP client used for presigned requests.
var Client = &http.Client{}

// DownloadPresignedURL GETs an object through a presigned URL and returns its body.
func DownloadPresignedURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxExportSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxExportSize {
		return nil, fmt.Errorf("download failed: object larger than %d bytes", MaxExportSize)
	}
	return body, nil
}
