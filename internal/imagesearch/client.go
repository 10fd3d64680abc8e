package imagesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const defaultBaseURL = "https://duckduckgo.com"

// browserAgent avoids the search frontend serving a challenge page.
const browserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

var vqdPattern = regexp.MustCompile(`vqd=['"]?([\d-]+)['"]?`)

// ErrNoResults indicates the query returned no usable image.
var ErrNoResults = errors.New("imagesearch: no results")

// Client fetches the top image result for a search term. Lookups are best
// effort; the render stage degrades to a captions-only overlay when a
// lookup fails.
type Client struct {
	// BaseURL is overridable for tests; defaults to the public frontend.
	BaseURL string

	client *http.Client
}

// New builds an image search client.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchFirst downloads the first image result for query into destDir and
// returns the local path. Returns ErrNoResults when nothing usable comes
// back.
func (c *Client) FetchFirst(ctx context.Context, query, destDir string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrNoResults
	}

	token, err := c.fetchToken(ctx, query)
	if err != nil {
		return "", err
	}
	imageURL, err := c.firstResult(ctx, query, token)
	if err != nil {
		return "", err
	}
	return c.download(ctx, imageURL, destDir, query)
}

// fetchToken scrapes the per-query vqd token the image endpoint requires.
func (c *Client) fetchToken(ctx context.Context, query string) (string, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&iax=images&ia=images", strings.TrimRight(c.BaseURL, "/"), url.QueryEscape(query))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("imagesearch token: %w", err)
	}
	match := vqdPattern.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("imagesearch token: no vqd in response")
	}
	return string(match[1]), nil
}

// firstResult queries the JSON image endpoint and returns the top hit URL.
func (c *Client) firstResult(ctx context.Context, query, token string) (string, error) {
	params := url.Values{}
	params.Set("l", "us-en")
	params.Set("o", "json")
	params.Set("q", query)
	params.Set("vqd", token)
	params.Set("f", ",,,")
	params.Set("p", "1")

	endpoint := fmt.Sprintf("%s/i.js?%s", strings.TrimRight(c.BaseURL, "/"), params.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("imagesearch query: %w", err)
	}

	var payload struct {
		Results []struct {
			Image string `json:"image"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("imagesearch decode: %w", err)
	}
	for _, result := range payload.Results {
		if result.Image != "" {
			return result.Image, nil
		}
	}
	return "", ErrNoResults
}

func (c *Client) download(ctx context.Context, imageURL, destDir, query string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("imagesearch download dir: %w", err)
	}

	body, err := c.get(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("imagesearch download: %w", err)
	}

	name := sanitizeName(query) + extensionFor(imageURL)
	path := filepath.Join(destDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("imagesearch save: %w", err)
	}
	return path, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, endpoint)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 32<<20))
}

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

func sanitizeName(query string) string {
	name := unsafeNameChars.ReplaceAllString(strings.ToLower(query), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "image"
	}
	return name
}

func extensionFor(imageURL string) string {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return ".jpg"
	}
	switch ext := strings.ToLower(filepath.Ext(parsed.Path)); ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	default:
		return ".jpg"
	}
}
