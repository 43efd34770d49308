package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "candidates")
	got := c.sign(map[string]string{"timestamp": "1700000000", "folder": "candidates", "api_key": "key"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=candidates&timestamp=1700000000secret")))
	assert.Equal(t, want, got)
}

func TestUploadBytes(t *testing.T) {
	var seen http.Header
	var fields map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		_, _ = w.Write([]byte(`{"public_id":"candidates/abc","secure_url":"https://res.cloudinary.com/demo/abc.jpg"}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "candidates")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.UploadBytes(context.Background(), []byte("jpegdata"), "me.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/abc.jpg", res.SecureURL)
	assert.Contains(t, seen.Get("Content-Type"), "multipart/form-data")
	assert.Equal(t, "1700000000", fields["timestamp"])
	assert.Equal(t, "candidates", fields["folder"])
	assert.Equal(t, c.sign(map[string]string{"timestamp": "1700000000", "folder": "candidates"}), fields["signature"])
}

func TestUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadDataURL(context.Background(), "data:image/png;base64,AAAA")
	assert.ErrorContains(t, err, "401")
}
