package imageref

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tryon-gateway/modules/common/asynctask"
)

func pngFixture(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestResolveBytes(t *testing.T) {
	data := pngFixture(t)

	resolved, err := FromBytes(data).Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(resolved.Data, data) {
		t.Error("resolved bytes differ from input")
	}
	if resolved.MimeType != "image/png" {
		t.Errorf("expected image/png, got %s", resolved.MimeType)
	}
}

func TestResolveBase64(t *testing.T) {
	data := pngFixture(t)
	encoded := base64.StdEncoding.EncodeToString(data)

	tests := []struct {
		name  string
		input string
	}{
		{"bare base64", encoded},
		{"data URI", "data:image/png;base64," + encoded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := FromBase64(tt.input).Resolve(context.Background(), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(resolved.Data, data) {
				t.Error("resolved bytes differ from input")
			}
		})
	}
}

func TestResolveInvalidBase64IsValidationError(t *testing.T) {
	_, err := FromBase64("!!not-base64!!").Resolve(context.Background(), nil)

	var valErr *asynctask.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	data := pngFixture(t)
	path := filepath.Join(t.TempDir(), "person.png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	resolved, err := FromPath(path).Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.MimeType != "image/png" {
		t.Errorf("expected image/png, got %s", resolved.MimeType)
	}
}

func TestResolveMissingFileIsValidationError(t *testing.T) {
	_, err := FromPath("/nonexistent/person.png").Resolve(context.Background(), nil)

	var valErr *asynctask.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestResolveURLKeepsSourceURL(t *testing.T) {
	data := pngFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	resolved, err := FromURL(srv.URL + "/a.png").Resolve(context.Background(), srv.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(resolved.Data, data) {
		t.Error("fetched bytes differ from served bytes")
	}
	if resolved.SourceURL != srv.URL+"/a.png" {
		t.Errorf("source URL not preserved: %q", resolved.SourceURL)
	}
}

func TestResolveURLServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := FromURL(srv.URL).Resolve(context.Background(), srv.Client())

	var netErr *asynctask.TransientNetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected TransientNetworkError, got %v", err)
	}
}

func TestResolveDecodedImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	resolved, err := FromImage(img).Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.MimeType != "image/png" {
		t.Errorf("expected image/png, got %s", resolved.MimeType)
	}
	if _, err := png.Decode(bytes.NewReader(resolved.Data)); err != nil {
		t.Errorf("resolved data is not valid PNG: %v", err)
	}
}

func TestResolveEmptyRefIsValidationError(t *testing.T) {
	var ref Ref
	if !ref.IsZero() {
		t.Fatal("zero ref should report IsZero")
	}

	_, err := ref.Resolve(context.Background(), nil)
	var valErr *asynctask.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
