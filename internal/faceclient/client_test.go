package faceclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/face"
)

func TestDescribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/describe":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			switch body["image_url"] {
			case "https://img/one.jpg":
				_ = json.NewEncoder(w).Encode(map[string]any{"descriptor": []float64{0.1, 0.2}, "faces_detected": 1})
			case "https://img/two.jpg":
				_ = json.NewEncoder(w).Encode(map[string]any{"descriptor": []float64{0.1, 0.2}, "faces_detected": 2})
			case "https://img/none.jpg":
				_ = json.NewEncoder(w).Encode(map[string]any{"faces_detected": 0})
			default:
				http.Error(w, "bad image", http.StatusUnprocessableEntity)
			}
		case "/health":
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	ctx := context.Background()

	d, err := c.Describe(ctx, "https://img/one.jpg")
	require.NoError(t, err)
	assert.Equal(t, face.Descriptor{0.1, 0.2}, d)

	_, err = c.Describe(ctx, "https://img/two.jpg")
	assert.Error(t, err)
	_, err = c.Describe(ctx, "https://img/none.jpg")
	assert.Error(t, err)
	_, err = c.Describe(ctx, "https://img/broken.jpg")
	assert.ErrorContains(t, err, "422")
	_, err = c.Describe(ctx, "")
	assert.Error(t, err)

	assert.NoError(t, c.Health(ctx))
}

func TestDescribeSkipped(t *testing.T) {
	c := New("http://127.0.0.1:1", true)
	_, err := c.Describe(context.Background(), "https://img/one.jpg")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NoError(t, c.Health(context.Background()))
}
