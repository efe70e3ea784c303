package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"mediaconv/internal/apiclient"
	"mediaconv/internal/artifact"
	"mediaconv/internal/catalog"
	"mediaconv/internal/conversion"
	"mediaconv/internal/services"
)

const testToken = "secret-token"

// fakeService mimics the conversion service closely enough for the client.
type fakeService struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	outputs     map[string][]byte
	textBodies  []map[string]string
	uploads     []string
	uploadTypes []string
	downloads   []string
	files       []map[string]any
	failures    map[string]int
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	svc := &fakeService{t: t, outputs: map[string][]byte{}, failures: map[string]int{}}

	router := chi.NewRouter()
	router.Use(svc.requireBearer)
	router.Post("/convert/text-to-audio", svc.convertText)
	router.Post("/convert/video-to-audio", svc.convertVideo)
	router.Get("/download/{filename}", svc.download)
	router.Get("/my-files", svc.listFiles)

	svc.server = httptest.NewServer(router)
	t.Cleanup(svc.server.Close)
	return svc
}

func (s *fakeService) failWith(path string, status int) {
	s.mu.Lock()
	s.failures[path] = status
	s.mu.Unlock()
}

func (s *fakeService) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
			return
		}
		s.mu.Lock()
		status := s.failures[r.URL.Path]
		s.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *fakeService) convertText(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": "invalid body"}}})
		return
	}
	s.mu.Lock()
	s.textBodies = append(s.textBodies, body)
	name := "tts-" + body["language"] + ".mp3"
	s.outputs[name] = []byte("speech:" + body["text"])
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"url": s.server.URL + "/download/" + name, "filename": name})
}

func (s *fakeService) convertVideo(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "missing file"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	name := "extract.mp3"
	s.mu.Lock()
	s.uploads = append(s.uploads, header.Filename+":"+string(data))
	s.uploadTypes = append(s.uploadTypes, header.Header.Get("Content-Type"))
	s.outputs[name] = []byte("audio-of:" + string(data))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"url": s.server.URL + "/download/" + name, "filename": name})
}

func (s *fakeService) download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	s.mu.Lock()
	data, ok := s.outputs[name]
	s.downloads = append(s.downloads, name)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "File not found"})
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

func (s *fakeService) listFiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	files := s.files
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"total": len(files), "files": files})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestBackend(t *testing.T, svc *fakeService, token string) *Client {
	t.Helper()
	api, err := apiclient.New(apiclient.Config{BaseURL: svc.server.URL, Tokens: apiclient.StaticToken(token)})
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	client, err := New(api, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestTextConversionEndToEnd(t *testing.T) {
	svc := newFakeService(t)
	client := newTestBackend(t, svc, testToken)
	registry := artifact.NewRegistry()
	orch, err := conversion.New(conversion.Options{Surface: conversion.KindTextToAudio, Backend: client, Registry: registry})
	if err != nil {
		t.Fatalf("conversion.New: %v", err)
	}
	defer orch.Close()

	job, err := orch.Submit(context.Background(), conversion.TextInput{Text: "Hello world", Language: "EN"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != conversion.StatusReady {
		t.Fatalf("expected ready, got %s: %s", job.Status, job.ErrorMessage)
	}
	data, err := job.Handle.Bytes()
	if err != nil || string(data) != "speech:Hello world" {
		t.Fatalf("unexpected artifact %q: %v", data, err)
	}
	if job.Handle.ContentType() != "audio/mpeg" || job.Filename != "tts-en.mp3" {
		t.Fatalf("unexpected artifact metadata: %q %q", job.Handle.ContentType(), job.Filename)
	}
	if got := svc.textBodies[0]; got["text"] != "Hello world" || got["language"] != "en" {
		t.Fatalf("unexpected submission body: %+v", got)
	}

	path, err := job.Handle.SaveTo(t.TempDir(), "")
	if err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if !strings.HasSuffix(path, "converted-audio.mp3") {
		t.Fatalf("unexpected save path %s", path)
	}
}

func TestVideoConversionUploadsMultipart(t *testing.T) {
	svc := newFakeService(t)
	client := newTestBackend(t, svc, testToken)

	sub, err := client.Submit(context.Background(), conversion.VideoInput{
		Name:    "clips/holiday.mp4",
		Size:    5,
		Content: strings.NewReader("frame"),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Filename != "extract.mp3" || !strings.HasSuffix(sub.URL, "/download/extract.mp3") {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if svc.uploads[0] != "holiday.mp4:frame" || svc.uploadTypes[0] != "video/mp4" {
		t.Fatalf("unexpected upload %q (%q)", svc.uploads[0], svc.uploadTypes[0])
	}

	payload, err := client.FetchArtifact(context.Background(), sub.URL)
	if err != nil {
		t.Fatalf("FetchArtifact: %v", err)
	}
	if string(payload.Data) != "audio-of:frame" || payload.FileName != "extract.mp3" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestArtifactFailureAfterSubmission(t *testing.T) {
	svc := newFakeService(t)
	svc.failWith("/download/tts-es.mp3", http.StatusInternalServerError)
	client := newTestBackend(t, svc, testToken)
	orch, _ := conversion.New(conversion.Options{Surface: conversion.KindTextToAudio, Backend: client})
	defer orch.Close()

	job, err := orch.Submit(context.Background(), conversion.TextInput{Text: "Hola", Language: "es"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != conversion.StatusFailed || !errors.Is(job.Err, services.ErrArtifactRetrieval) {
		t.Fatalf("expected artifact failure, got %+v", job)
	}
	if job.ErrorMessage != "Conversion succeeded but the audio could not be retrieved: Failed to load audio" {
		t.Fatalf("unexpected message %q", job.ErrorMessage)
	}
}

func TestRejectedTokenSurfacesDetail(t *testing.T) {
	svc := newFakeService(t)
	client := newTestBackend(t, svc, "wrong")

	_, err := client.ConvertText(context.Background(), conversion.TextInput{Text: "hi", Language: "en"})
	var reqErr *apiclient.RequestError
	if !errors.As(err, &reqErr) || reqErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 request error, got %v", err)
	}
	if reqErr.Message() != "Could not validate credentials" {
		t.Fatalf("unexpected detail %q", reqErr.Message())
	}
}

func TestCatalogLoadFilterAndDownload(t *testing.T) {
	svc := newFakeService(t)
	svc.outputs["a.mp3"] = []byte("A-bytes")
	svc.files = []map[string]any{
		{"filename": "a.mp3", "original_name": "A", "file_type": "text_to_audio", "file_size": 7, "created_at": "2025-01-02T03:04:05.000001", "download_url": svc.server.URL + "/download/a.mp3"},
		{"filename": "b.mp3", "original_name": "B", "file_type": "video_to_audio", "file_size": 9, "created_at": "2025-01-01T00:00:00"},
	}
	client := newTestBackend(t, svc, testToken)
	dir := t.TempDir()
	cat, err := catalog.New(catalog.Options{Source: client, DownloadDir: dir})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}

	if err := cat.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := cat.State()
	if st.Total != 2 || len(st.Files) != 2 || st.Files[0].Filename != "a.mp3" {
		t.Fatalf("unexpected listing %+v", st)
	}
	if st.Files[0].CreatedAt.Year() != 2025 || st.Files[0].FileSizeBytes != 7 {
		t.Fatalf("unexpected decoded entry %+v", st.Files[0])
	}
	if st.Files[1].DownloadURL != "/download/b.mp3" {
		t.Fatalf("expected derived download ref, got %q", st.Files[1].DownloadURL)
	}

	cat.SetType(catalog.TypeVideoToAudio)
	if visible := cat.Visible(); len(visible) != 1 || visible[0].Filename != "b.mp3" {
		t.Fatalf("unexpected visible set %+v", visible)
	}

	path, err := cat.Download(context.Background(), st.Files[0])
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "A-bytes" {
		t.Fatalf("unexpected saved content %q", data)
	}

	svc.failWith("/download/b.mp3", http.StatusForbidden)
	if _, err := cat.Download(context.Background(), st.Files[1]); err == nil {
		t.Fatal("expected forbidden download to fail")
	}
	st = cat.State()
	if st.DownloadError != "Failed to download file: Download failed" {
		t.Fatalf("unexpected download error %q", st.DownloadError)
	}
	if len(st.Files) != 2 || st.LoadError != "" {
		t.Fatalf("list must remain populated: %+v", st)
	}
}

func TestListFailureUsesFallback(t *testing.T) {
	svc := newFakeService(t)
	svc.failWith("/my-files", http.StatusInternalServerError)
	client := newTestBackend(t, svc, testToken)

	_, err := client.ListFiles(context.Background())
	var reqErr *apiclient.RequestError
	if !errors.As(err, &reqErr) || reqErr.Message() != "Failed to fetch files" || reqErr.Status != 500 {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSubmitRejectsUnknownInput(t *testing.T) {
	client := newTestBackend(t, newFakeService(t), testToken)
	if _, err := client.Submit(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil input")
	}
	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected error for nil api client")
	}
}
