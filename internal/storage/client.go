package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"stopmo/internal/models"
	"stopmo/internal/shared"
)

// Default TTLs match the collaborative editing cadence: configs change often
// (other collaborators mark frames taken), images are immutable in practice.
const (
	DefaultConfigTTL = 60 * time.Second
	DefaultImageTTL  = time.Hour
)

const webpContentType = "image/webp"

// Client performs keyed GET/PUT/HEAD operations against the project blob
// namespace, with TTL read caches for config documents and frame images.
//
// Uploads carry no optimistic concurrency check: the bucket has no locking
// and last writer wins. That weak consistency is a documented property of
// the system, not something this client papers over.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	configCache *ttlCache[[]byte]
	imageCache  *ttlCache[[]byte]
}

// NewClient creates a storage client for the given base URL.
//
// An empty token means anonymous access (direct public bucket); a non-empty
// token is sent as a bearer Authorization header on every request. A nil
// httpClient defaults to [http.DefaultClient].
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:     baseURL,
		token:       token,
		httpClient:  httpClient,
		configCache: newTTLCache[[]byte](DefaultConfigTTL),
		imageCache:  newTTLCache[[]byte](DefaultImageTTL),
	}
}

// SetCacheTTL replaces both cache TTLs, dropping any cached entries.
func (c *Client) SetCacheTTL(config, image time.Duration) {
	c.configCache = newTTLCache[[]byte](config)
	c.imageCache = newTTLCache[[]byte](image)
}

func (c *Client) objectURL(key string) string {
	return c.baseURL + "/" + key
}

// do performs one HTTP request against an object key, classifying transport
// failures into the shared error taxonomy. HTTP status handling is left to
// the caller.
func (c *Client) do(ctx context.Context, method, key string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.objectURL(key), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	return resp, nil
}

// classifyTransportError maps raw transport failures onto shared sentinels.
//
// A DNS resolution failure means the endpoint itself is misnamed or gone,
// which renders as "bucket not found" rather than a generic network error.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", shared.ErrBucketNotFound, err)
	}

	return fmt.Errorf("%w: %v", shared.ErrTransport, err)
}

// classifyNotFound distinguishes a missing object from a missing bucket on a
// 404 response. S3 reports the difference in the error document's Code
// element; an intermediary API returns a plain 404 for a missing object.
func classifyNotFound(body []byte) error {
	if bytes.Contains(body, []byte("<Code>NoSuchBucket</Code>")) {
		return shared.ErrBucketNotFound
	}
	return shared.ErrProjectNotFound
}

// DownloadConfig fetches a project's config document, serving cached bytes
// when younger than the config TTL.
//
// The document is decoded fresh on every call so callers can mutate the
// result without polluting the cache.
func (c *Client) DownloadConfig(ctx context.Context, projectID string) (*models.ProjectConfig, error) {
	cacheKey := configCacheKey(projectID)

	if data, ok := c.configCache.get(cacheKey); ok {
		return decodeConfig(data)
	}

	resp, err := c.do(ctx, http.MethodGet, ConfigKey(projectID), nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to download config: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read config response: %w", shared.ErrTransport)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("failed to download config: %w", classifyNotFound(data))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: download config returned status %d", shared.ErrTransport, resp.StatusCode)
	}

	config, err := decodeConfig(data)
	if err != nil {
		return nil, err
	}

	c.configCache.put(cacheKey, data)
	return config, nil
}

func decodeConfig(data []byte) (*models.ProjectConfig, error) {
	var config models.ProjectConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &config, nil
}

// UploadConfig serializes the config and PUTs it wholesale. Last writer wins;
// there is no ETag or version comparison.
func (c *Client) UploadConfig(ctx context.Context, projectID string, config *models.ProjectConfig) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, ConfigKey(projectID), bytes.NewReader(data), "application/json")
	if err != nil {
		return fmt.Errorf("failed to upload config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: upload config returned status %d", shared.ErrTransport, resp.StatusCode)
	}

	return nil
}

// CheckExists reports whether a project's config object exists.
//
// A 404 is an answer (false), not an error; HEAD carries no error document,
// so a missing bucket is indistinguishable from a missing object here.
func (c *Client) CheckExists(ctx context.Context, projectID string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, ConfigKey(projectID), nil, "")
	if err != nil {
		return false, fmt.Errorf("failed to check project: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%w: existence check returned status %d", shared.ErrTransport, resp.StatusCode)
	}
}

// DownloadImage fetches a frame image, serving the cached blob when younger
// than the image TTL.
func (c *Client) DownloadImage(ctx context.Context, projectID string, index int) ([]byte, error) {
	cacheKey := imageCacheKey(projectID, index)

	if blob, ok := c.imageCache.get(cacheKey); ok {
		return blob, nil
	}

	resp, err := c.do(ctx, http.MethodGet, FrameKey(projectID, index), nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image response: %w", shared.ErrTransport)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("failed to download image: %w", classifyNotFound(data))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: download image returned status %d", shared.ErrTransport, resp.StatusCode)
	}

	c.imageCache.put(cacheKey, data)
	return data, nil
}

// UploadImage PUTs a frame image blob with the fixed webp content type.
func (c *Client) UploadImage(ctx context.Context, projectID string, index int, blob []byte) error {
	resp, err := c.do(ctx, http.MethodPut, FrameKey(projectID, index), bytes.NewReader(blob), webpContentType)
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: upload image returned status %d", shared.ErrTransport, resp.StatusCode)
	}

	return nil
}

// SyncFrames uploads each pending frame strictly in order, one at a time.
//
// A failed item never aborts the remainder: every input frame produces one
// result, in input order, and the caller decides whether partial success is
// acceptable.
func (c *Client) SyncFrames(ctx context.Context, projectID string, frames []models.FrameUpload) []models.SyncResult {
	results := make([]models.SyncResult, 0, len(frames))

	for _, frame := range frames {
		if err := c.UploadImage(ctx, projectID, frame.Index, frame.Blob); err != nil {
			results = append(results, models.SyncResult{Index: frame.Index, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, models.SyncResult{Index: frame.Index, Success: true})
	}

	return results
}

// ClearCache drops every cached config and image.
func (c *Client) ClearCache() {
	c.configCache.clear()
	c.imageCache.clear()
}

// ClearConfigCache drops cached configs: one project's when projectID is
// non-empty, otherwise all.
func (c *Client) ClearConfigCache(projectID string) {
	if projectID == "" {
		c.configCache.clear()
		return
	}
	c.configCache.delete(configCacheKey(projectID))
}

// ClearImageCache drops cached images. Scope narrows with the arguments:
// both zero values clears everything, a projectID alone clears that
// project's images, and a non-negative index clears one exact entry.
func (c *Client) ClearImageCache(projectID string, index int) {
	switch {
	case projectID == "":
		c.imageCache.clear()
	case index < 0:
		c.imageCache.deletePrefix(imageCachePrefix(projectID))
	default:
		c.imageCache.delete(imageCacheKey(projectID, index))
	}
}
