// Package httpclient is a minimal demonstration rangedl.Client backed by
// plain HTTP range requests. It is a collaborator/example, not a core
// design target (concrete storage adapters are explicitly out of scope for
// the engine itself), but it gives the benchmark tool in cmd/rangedlbench
// something real to drive.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rangedl/rangedl/pkg/ranges"
)

// Client fetches byte ranges of a single URL over HTTP. The blobID passed
// to GetSize/Fetch is ignored in favor of the URL given to New; it exists
// only to satisfy the rangedl.Client interface.
type Client struct {
	url        string
	httpClient *http.Client
}

// New returns a Client that serves ranges of the resource at url using hc.
// If hc is nil, http.DefaultClient is used.
func New(url string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{url: url, httpClient: hc}
}

// GetSize performs a HEAD request and returns the resource's Content-Length.
func (c *Client) GetSize(ctx context.Context, _ string) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("httpclient: HEAD %s: unexpected status %s", c.url, resp.Status)
	}
	if !supportsRange(resp.Header) {
		return 0, fmt.Errorf("httpclient: %s does not advertise Accept-Ranges: bytes", c.url)
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("httpclient: HEAD %s: no Content-Length", c.url)
	}
	return uint64(resp.ContentLength), nil
}

// Fetch issues a GET with a Range header covering r and verifies the server
// honored it with a 206 Partial Content response. When the response carries
// a parseable Content-Range header, it must cover exactly r; a missing or
// unparseable Content-Range is not checked.
func (c *Client) Fetch(ctx context.Context, _ string, r ranges.InclusiveRange) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", r.Lo, r.Hi))
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("httpclient: expected 206 Partial Content, got %s", resp.Status)
	}

	if start, end, _, ok := parseContentRange(resp.Header.Get("Content-Range")); ok {
		if start != r.Lo || end != r.Hi {
			resp.Body.Close()
			return nil, fmt.Errorf("httpclient: server returned range %d-%d, requested %d-%d", start, end, r.Lo, r.Hi)
		}
	}

	return resp.Body, nil
}

// supportsRange reports whether h advertises byte-range support, per
// RFC 7233 ("Accept-Ranges: bytes").
func supportsRange(h http.Header) bool {
	for _, part := range strings.Split(strings.ToLower(h.Get("Accept-Ranges")), ",") {
		if strings.TrimSpace(part) == "bytes" {
			return true
		}
	}
	return false
}

// parseContentRange parses "Content-Range: bytes start-end/total". total is
// -1 when unknown ("*").
func parseContentRange(h string) (start, end, total int64, ok bool) {
	h = strings.ToLower(strings.TrimSpace(h))
	if !strings.HasPrefix(h, "bytes ") {
		return 0, -1, -1, false
	}
	body := strings.TrimSpace(h[len("bytes "):])
	seTotal := strings.SplitN(body, "/", 2)
	if len(seTotal) != 2 {
		return 0, -1, -1, false
	}
	se := strings.SplitN(strings.TrimSpace(seTotal[0]), "-", 2)
	if len(se) != 2 {
		return 0, -1, -1, false
	}
	start, err1 := strconv.ParseInt(strings.TrimSpace(se[0]), 10, 64)
	end, err2 := strconv.ParseInt(strings.TrimSpace(se[1]), 10, 64)
	if err1 != nil || err2 != nil {
		return 0, -1, -1, false
	}
	total = -1
	if t := strings.TrimSpace(seTotal[1]); t != "*" {
		if tv, err := strconv.ParseInt(t, 10, 64); err == nil {
			total = tv
		}
	}
	return start, end, total, true
}

