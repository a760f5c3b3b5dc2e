package imagesource

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/samvad-hq/samvad-vision-predictor/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient returns a single response and records the requested url.
type stubHTTPClient struct {
	resp    httpclient.Response
	err     error
	gotURL  *string
	headers *map[string]string
}

func (s stubHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	if s.gotURL != nil {
		*s.gotURL = url
	}
	if s.headers != nil {
		*s.headers = headers
	}
	return s.resp, s.err
}

func (s stubHTTPClient) Post(context.Context, string, map[string]string, []byte) (httpclient.Response, error) {
	return nil, errors.New("unexpected post")
}

func TestParseImagePrefersOGTags(t *testing.T) {
	html := []byte(`
<html>
  <head>
    <meta name="twitter:image" content="/img/tw.png">
    <meta property="og:image" content="/img/og.png">
  </head>
</html>`)

	got, err := parseImage(html)
	if err != nil {
		t.Fatalf("parseImage: %v", err)
	}
	if got != "/img/og.png" {
		t.Fatalf("unexpected image %q", got)
	}
}

func TestResolveURLHandlesRelative(t *testing.T) {
	got := resolveURL("/img.png", "https://example.com/articles/1")
	if got != "https://example.com/img.png" {
		t.Fatalf("resolveURL got %q", got)
	}
	if got := resolveURL("", "https://example.com"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := resolveURL("data:image/png;base64,AAAA", "https://example.com"); got != "" {
		t.Fatalf("expected data uri to be rejected, got %q", got)
	}
}

func TestResolveReturnsAbsoluteImage(t *testing.T) {
	var gotURL string
	var headers map[string]string
	html := `<html><head><link rel="image_src" href="photos/look.jpg"></head></html>`
	r := NewResolver(stubHTTPClient{
		resp:    stubHTTPResponse{body: []byte(html), statusCode: 200},
		gotURL:  &gotURL,
		headers: &headers,
	})

	img, err := r.Resolve(context.Background(), "https://shop.example.com/catalog/item")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if img != "https://shop.example.com/catalog/photos/look.jpg" {
		t.Fatalf("unexpected image %q", img)
	}
	if gotURL != "https://shop.example.com/catalog/item" {
		t.Fatalf("unexpected fetched url %q", gotURL)
	}
	if headers["Accept"] == "" {
		t.Fatalf("expected Accept header")
	}
}

func TestResolveNoImage(t *testing.T) {
	r := NewResolver(stubHTTPClient{resp: stubHTTPResponse{body: []byte("<html></html>"), statusCode: 200}})
	if _, err := r.Resolve(context.Background(), "https://example.com"); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestResolveAcceptsAny2xx(t *testing.T) {
	html := `<html><head><meta property="og:image" content="https://cdn.example.com/a.jpg"></head></html>`
	r := NewResolver(stubHTTPClient{resp: stubHTTPResponse{body: []byte(html), statusCode: 203}})
	img, err := r.Resolve(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Resolve on 203: %v", err)
	}
	if img != "https://cdn.example.com/a.jpg" {
		t.Fatalf("unexpected image %q", img)
	}
}

func TestResolveNon2xx(t *testing.T) {
	r := NewResolver(stubHTTPClient{resp: stubHTTPResponse{body: bytes.Repeat([]byte("x"), 4096), statusCode: 404}})
	if _, err := r.Resolve(context.Background(), "https://example.com"); err == nil {
		t.Fatalf("expected error for 404")
	}
	r = NewResolver(stubHTTPClient{resp: stubHTTPResponse{body: []byte("moved"), statusCode: 301}})
	if _, err := r.Resolve(context.Background(), "https://example.com"); err == nil {
		t.Fatalf("expected error for 301")
	}
}

func TestResolveRejectsInvalidPageURL(t *testing.T) {
	r := NewResolver(stubHTTPClient{})
	if _, err := r.Resolve(context.Background(), "not a url"); err == nil {
		t.Fatalf("expected invalid url error")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", " ", "foo", "bar"); got != "foo" {
		t.Fatalf("firstNonEmpty returned %q", got)
	}
}
