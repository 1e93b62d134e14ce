package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangedl/rangedl/pkg/ranges"
)

func rangeServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			rangeHeader := r.Header.Get("Range")
			var lo, hi int
			if _, err := fmt.Sscanf(rangeHeader, "bytes=%d-%d", &lo, &hi); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", lo, hi, len(data)))
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write(data[lo : hi+1])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
}

func TestClientGetSize(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz")
	srv := rangeServer(t, data)
	defer srv.Close()

	c := New(srv.URL, nil)
	size, err := c.GetSize(context.Background(), "blob")
	require.NoError(t, err)
	assert.Equal(t, uint64(len(data)), size)
}

func TestClientGetSizeRejectsMissingAcceptRanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.GetSize(context.Background(), "blob")
	assert.Error(t, err)
}

func TestClientFetchReturnsRequestedRange(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz")
	srv := rangeServer(t, data)
	defer srv.Close()

	c := New(srv.URL, nil)
	body, err := c.Fetch(context.Background(), "blob", ranges.InclusiveRange{Lo: 5, Hi: 9})
	require.NoError(t, err)
	defer body.Close()

	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "fghij", string(got))
}

func TestClientFetchRejectsNonPartialContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("whole thing"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Fetch(context.Background(), "blob", ranges.InclusiveRange{Lo: 0, Hi: 3})
	assert.Error(t, err)
}

func TestClientFetchRejectsMismatchedContentRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes 0-3/100")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("abcd"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Fetch(context.Background(), "blob", ranges.InclusiveRange{Lo: 10, Hi: 13})
	assert.Error(t, err)
}
