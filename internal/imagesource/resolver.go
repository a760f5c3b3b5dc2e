package imagesource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/samvad-vision-predictor/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
)

// ErrNoImage is returned when a page declares no usable image.
var ErrNoImage = errors.New("page declares no image")

var defaultHeaders = map[string]string{
	"Accept":     "text/html,application/xhtml+xml",
	"User-Agent": "samvad-vision-predictor/1.0",
}

// Resolver finds the representative image of an HTML page.
type Resolver struct {
	client httpclient.Client
}

// NewResolver constructs a resolver using client for page fetches.
func NewResolver(client httpclient.Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve fetches pageURL and returns the absolute URL of its og:image,
// falling back to twitter:image and link[rel=image_src].
func (r *Resolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	if r == nil || r.client == nil {
		return "", fmt.Errorf("image resolver is not initialized")
	}
	pageURL = strings.TrimSpace(pageURL)
	if _, err := url.ParseRequestURI(pageURL); err != nil {
		return "", fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	resp, err := r.client.Get(ctx, pageURL, defaultHeaders)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return "", fmt.Errorf("page status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	raw, err := parseImage(body)
	if err != nil {
		return "", err
	}
	if raw == "" {
		return "", fmt.Errorf("%s: %w", pageURL, ErrNoImage)
	}
	resolved := resolveURL(raw, pageURL)
	if resolved == "" {
		return "", fmt.Errorf("%s: unresolvable image reference %q", pageURL, raw)
	}
	return resolved, nil
}

func parseImage(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	attr := func(sel, name string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr(name); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return firstNonEmpty(
		attr(`meta[property="og:image:secure_url"]`, "content"),
		attr(`meta[property="og:image"]`, "content"),
		attr(`meta[name="twitter:image"]`, "content"),
		attr(`link[rel="image_src"]`, "href"),
	), nil
}

// resolveURL makes ref absolute against base. Only http(s) results are returned.
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	abs := baseURL.ResolveReference(refURL)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
