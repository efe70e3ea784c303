package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

const cliTestToken = "cli-token"

type fakeServer struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []string
	outputs  map[string][]byte
	files    []map[string]any
	failures map[string]int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	s := &fakeServer{outputs: map[string][]byte{}, failures: map[string]int{}}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.requests = append(s.requests, r.Method+" "+r.URL.Path)
			status := s.failures[r.URL.Path]
			s.mu.Unlock()
			if r.Header.Get("Authorization") != "Bearer "+cliTestToken {
				respondJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
				return
			}
			if status != 0 {
				w.WriteHeader(status)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	router.Post("/convert/text-to-audio", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text     string `json:"text"`
			Language string `json:"language"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.outputs["tts.mp3"] = []byte(body.Language + ":" + body.Text)
		s.mu.Unlock()
		respondJSON(w, http.StatusOK, map[string]string{"url": s.server.URL + "/download/tts.mp3", "filename": "tts.mp3"})
	})
	router.Post("/convert/video-to-audio", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]any{"detail": "missing file"})
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		s.mu.Lock()
		s.outputs["video.mp3"] = append([]byte("extracted:"), data...)
		s.mu.Unlock()
		respondJSON(w, http.StatusOK, map[string]string{"url": s.server.URL + "/download/video.mp3", "filename": "video.mp3"})
	})
	router.Get("/download/{filename}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		data, ok := s.outputs[chi.URLParam(r, "filename")]
		s.mu.Unlock()
		if !ok {
			respondJSON(w, http.StatusNotFound, map[string]any{"detail": "File not found"})
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(data)
	})
	router.Get("/my-files", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		files := s.files
		s.mu.Unlock()
		respondJSON(w, http.StatusOK, map[string]any{"total": len(files), "files": files})
	})

	s.server = httptest.NewServer(router)
	t.Cleanup(s.server.Close)
	return s
}

func (s *fakeServer) failWith(path string, status int) {
	s.mu.Lock()
	s.failures[path] = status
	s.mu.Unlock()
}

func (s *fakeServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type cliTestEnv struct {
	server      *fakeServer
	configPath  string
	downloadDir string
	tokenFile   string
}

// setupCLITestEnv isolates HOME and writes a config pointing at a fake server.
// An empty token leaves authentication to the token file.
func setupCLITestEnv(t *testing.T, token string) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("MEDIACONV_API_URL", "")
	t.Setenv("MEDIACONV_TOKEN", "")

	server := newFakeServer(t)
	env := &cliTestEnv{
		server:      server,
		configPath:  filepath.Join(base, "mediaconv.toml"),
		downloadDir: filepath.Join(base, "downloads"),
		tokenFile:   filepath.Join(base, "auth", "token"),
	}
	content := fmt.Sprintf(`[api]
base_url = %q
timeout_seconds = 10

[auth]
token = %q
token_file = %q

[paths]
download_dir = %q

[logging]
level = "error"
`, server.server.URL, token, env.tokenFile, env.downloadDir)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	if env != nil {
		args = append([]string{"--config", env.configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n--- output ---\n%s", needle, haystack)
	}
}
