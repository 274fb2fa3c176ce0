package resolver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"tryon-gateway/modules/common/asynctask"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func succeededTask(refs ...string) *asynctask.Task {
	return &asynctask.Task{TaskID: "t-1", Status: asynctask.StatusSucceeded, ResultRefs: refs}
}

func TestResolvePreservesProviderOrder(t *testing.T) {
	first := pngFixture(t, 2, 2)
	second := pngFixture(t, 4, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		switch r.URL.Path {
		case "/a.png":
			w.Write(first)
		case "/b.png":
			w.Write(second)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	res := New(srv.Client())
	artifacts, err := res.Resolve(context.Background(), succeededTask(srv.URL+"/a.png", srv.URL+"/b.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Width != 2 || artifacts[1].Width != 4 {
		t.Errorf("artifact order not preserved: widths %d, %d", artifacts[0].Width, artifacts[1].Width)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	data := pngFixture(t, 3, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	res := New(srv.Client())
	task := succeededTask(srv.URL + "/a.png")

	firstRun, err := res.Resolve(context.Background(), task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondRun, err := res.Resolve(context.Background(), task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(firstRun[0].Data, secondRun[0].Data) {
		t.Error("repeated resolution of the same ref must yield byte-identical output")
	}
}

func TestResolveInlineDataURI(t *testing.T) {
	data := pngFixture(t, 2, 2)
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	res := New(nil)
	artifacts, err := res.Resolve(context.Background(), succeededTask(ref))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(artifacts[0].Data, data) {
		t.Error("inline payload bytes differ")
	}
	if artifacts[0].MimeType != "image/png" {
		t.Errorf("expected image/png, got %s", artifacts[0].MimeType)
	}
}

func TestResolveCorruptImageIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("definitely not a png"))
	}))
	defer srv.Close()

	res := New(srv.Client())
	_, err := res.Resolve(context.Background(), succeededTask(srv.URL+"/bad.png"))

	var decErr *asynctask.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestResolveFetchFailureIsDistinctFromDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := New(srv.Client())
	_, err := res.Resolve(context.Background(), succeededTask(srv.URL+"/a.png"))

	var netErr *asynctask.TransientNetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected TransientNetworkError, got %v", err)
	}
	var decErr *asynctask.DecodeError
	if errors.As(err, &decErr) {
		t.Error("fetch failure must not be classified as a decode failure")
	}
}

func TestResolveVideoKeepsRawBytes(t *testing.T) {
	// MP4 매직 바이트 (ftypisom)
	video := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypisom")...)
	video = append(video, make([]byte, 64)...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(video)
	}))
	defer srv.Close()

	res := New(srv.Client())
	artifacts, err := res.Resolve(context.Background(), succeededTask(srv.URL+"/clip.mp4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifacts[0].IsImage() {
		t.Error("video artifact misclassified as image")
	}
	if !bytes.Equal(artifacts[0].Data, video) {
		t.Error("video bytes must be kept raw")
	}
	if artifacts[0].Width != 0 || artifacts[0].Height != 0 {
		t.Error("video artifacts must not report image dimensions")
	}
}

func TestResolveEmptyRefsIsProviderFailure(t *testing.T) {
	res := New(nil)
	_, err := res.Resolve(context.Background(), succeededTask())

	var taskErr *asynctask.ProviderTaskFailure
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected ProviderTaskFailure, got %v", err)
	}
}
