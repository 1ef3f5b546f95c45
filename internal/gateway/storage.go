package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/MuganziJames/Umoja-AI/internal/logger"
	"github.com/MuganziJames/Umoja-AI/internal/utils"
)

const DefaultBucket = "story-images"

// UploadFile stores a file in the given bucket under a generated name
// and returns its public URL.
func (c *Client) UploadFile(ctx context.Context, fileName string, content []byte, bucket string) UploadResult {
	backend, err := c.ensureReady()
	if err != nil {
		return UploadResult{Result: failure(err)}
	}
	if bucket == "" {
		bucket = DefaultBucket
	}

	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	object := fmt.Sprintf("%d-%s", c.now().UnixMilli(), utils.RandomString(6))
	if ext != "" {
		object += "." + ext
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", backend.URL, bucket, object)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(content))
	if err != nil {
		return UploadResult{Result: failure(err)}
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("file upload failed", map[string]any{"error": err.Error()})
		return UploadResult{Result: failure(fmt.Errorf("gateway: upload failed: %w", err))}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		remoteErr := decodeRemoteError(resp)
		logger.Error("file upload rejected", map[string]any{"error": remoteErr.Error()})
		return UploadResult{Result: failure(remoteErr)}
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", backend.URL, bucket, object)
	return UploadResult{
		Result:    succeeded(),
		FileName:  object,
		PublicURL: publicURL,
	}
}
