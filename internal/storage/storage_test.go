package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateImageName(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.webp"} {
		assert.NoError(t, ValidateImageName(name), name)
	}
	for _, name := range []string{"a.gif", "b.svg", "noext", "c.png.exe"} {
		assert.ErrorIs(t, ValidateImageName(name), ErrUnsupportedFormat, name)
	}
}

func TestUploadReturnsSecureURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "menu", r.FormValue("upload_preset"))
		assert.Equal(t, "business-1/products", r.FormValue("folder"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "burger.png", hdr.Filename)
		assert.Equal(t, "pngbytes", string(data))

		w.Write([]byte(`{"secure_url":"https://cdn.test/burger.png"}`))
	}))
	defer srv.Close()

	u := NewHTTPUploader(srv.URL, "menu")
	url, err := u.Upload(context.Background(), "business-1/products", "burger.png", strings.NewReader("pngbytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/burger.png", url)
}

func TestUploadRejectsBadExtensionBeforeSending(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	u := NewHTTPUploader(srv.URL, "")
	_, err := u.Upload(context.Background(), "", "doc.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, called)
}

func TestUploadProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
	}))
	defer srv.Close()

	u := NewHTTPUploader(srv.URL, "missing")
	_, err := u.Upload(context.Background(), "", "a.jpg", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Upload preset not found")
}

func TestUploadNotConfigured(t *testing.T) {
	u := NewHTTPUploader("", "")
	_, err := u.Upload(context.Background(), "", "a.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}
