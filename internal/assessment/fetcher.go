// internal/assessment/fetcher.go
package assessment

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sailmatch-workers/internal/ai/gateway"
	commonhttp "sailmatch-workers/internal/common/http"
)

// maxImageBytes caps passport/photo downloads; provider APIs reject larger
// payloads anyway.
const maxImageBytes = 10 << 20

// NewImageFetcher downloads an image URL into a base64 attachment, taking
// the mime type from the Content-Type header.
func NewImageFetcher(client *commonhttp.Client) ImageFetcher {
	return func(ctx context.Context, url string) (*gateway.ImageAttachment, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("build image request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch image: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read image body: %w", err)
		}
		if len(data) > maxImageBytes {
			return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
		}

		mimeType := resp.Header.Get("Content-Type")
		if idx := strings.Index(mimeType, ";"); idx >= 0 {
			mimeType = mimeType[:idx]
		}
		mimeType = strings.TrimSpace(mimeType)
		if !strings.HasPrefix(mimeType, "image/") {
			mimeType = "image/jpeg"
		}

		return &gateway.ImageAttachment{
			Data:     base64.StdEncoding.EncodeToString(data),
			MimeType: mimeType,
		}, nil
	}
}
