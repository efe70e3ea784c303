package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mediaconv/internal/apiclient"
	"mediaconv/internal/artifact"
	"mediaconv/internal/logging"
)

const (
	loadFallback     = "Failed to fetch files"
	downloadFallback = "Download failed"
	downloadPrefix   = "Failed to download file: "

	hintEmpty    = "Start converting files to see them here"
	hintFiltered = "Try adjusting your search or filters"
)

// Source is the backend side of the catalog.
type Source interface {
	ListFiles(ctx context.Context) (Listing, error)
	DownloadFile(ctx context.Context, ref string) (apiclient.Payload, error)
}

// Options configures a Catalog.
type Options struct {
	Source      Source
	Registry    *artifact.Registry
	DownloadDir string
	Logger      *slog.Logger
	Now         func() time.Time
}

// State is a snapshot of the catalog view.
type State struct {
	Files   []MediaFile
	Visible []MediaFile
	Total   int
	Filter  Filter

	Loaded   bool
	Loading  bool
	LoadedAt time.Time

	LoadError     string
	DownloadError string
	// Downloading is the filename of the download in progress.
	Downloading string
	// LastSaved is the path of the most recent successful download.
	LastSaved string
}

// EmptyHint explains an empty visible list, or returns "" when entries show.
func (s State) EmptyHint() string {
	if len(s.Visible) > 0 {
		return ""
	}
	if s.Filter.Active() {
		return hintFiltered
	}
	return hintEmpty
}

// Catalog is the "My Files" view model.
type Catalog struct {
	source      Source
	registry    *artifact.Registry
	downloadDir string
	logger      *slog.Logger
	now         func() time.Time

	mu    sync.Mutex
	state State
}

// New constructs a Catalog.
func New(opts Options) (*Catalog, error) {
	if opts.Source == nil {
		return nil, errors.New("catalog: source is required")
	}
	registry := opts.Registry
	if registry == nil {
		registry = artifact.NewRegistry()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Catalog{
		source:      opts.Source,
		registry:    registry,
		downloadDir: opts.DownloadDir,
		logger:      logging.NewComponentLogger(opts.Logger, "catalog"),
		now:         now,
		state:       State{Filter: Filter{Type: TypeAll}},
	}, nil
}

// State returns a copy of the current view.
func (c *Catalog) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Load fetches the listing. On failure the previous list stays in place and
// LoadError is set; the error is also returned for callers that need it.
func (c *Catalog) Load(ctx context.Context) error {
	c.mu.Lock()
	c.state.Loading = true
	c.mu.Unlock()

	listing, err := c.source.ListFiles(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if err != nil {
		c.state.LoadError = message(err, loadFallback)
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "catalog load failed", "catalog_load_failed",
			logging.Int("retained_files", len(c.state.Files)),
			logging.String(logging.FieldErrorHint, "showing the last loaded list"),
			logging.Error(err),
		)
		return err
	}

	files := make([]MediaFile, len(listing.Files))
	copy(files, listing.Files)
	c.state.Files = files
	c.state.Total = listing.Total
	if c.state.Total < len(files) {
		c.state.Total = len(files)
	}
	c.state.Loaded = true
	c.state.LoadedAt = c.now()
	c.state.LoadError = ""
	c.logger.Info("catalog loaded", logging.Int("files", len(files)), logging.Int("total", c.state.Total))
	return nil
}

// SetFilter replaces both predicates.
func (c *Catalog) SetFilter(f Filter) {
	if f.Type == "" {
		f.Type = TypeAll
	}
	c.mu.Lock()
	c.state.Filter = f
	c.mu.Unlock()
}

// SetSearch replaces the search term.
func (c *Catalog) SetSearch(term string) {
	c.mu.Lock()
	c.state.Filter.Search = term
	c.mu.Unlock()
}

// SetType replaces the type predicate.
func (c *Catalog) SetType(t FileType) {
	if t == "" {
		t = TypeAll
	}
	c.mu.Lock()
	c.state.Filter.Type = t
	c.mu.Unlock()
}

// Visible returns the loaded entries that pass the current filter.
func (c *Catalog) Visible() []MediaFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Apply(c.state.Files, c.state.Filter)
}

// Lookup finds a loaded entry by filename.
func (c *Catalog) Lookup(filename string) (MediaFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, file := range c.state.Files {
		if file.Filename == filename {
			return file, true
		}
	}
	return MediaFile{}, false
}

// Download fetches file and saves it under its display name in the download
// directory, returning the path written. Failures set DownloadError and leave
// the list untouched.
func (c *Catalog) Download(ctx context.Context, file MediaFile) (string, error) {
	return c.DownloadTo(ctx, file, c.downloadDir)
}

// DownloadTo is Download with an explicit destination directory.
func (c *Catalog) DownloadTo(ctx context.Context, file MediaFile, dir string) (string, error) {
	c.mu.Lock()
	c.state.Downloading = file.Filename
	c.state.DownloadError = ""
	c.mu.Unlock()

	logger := logging.WithContext(ctx, c.logger).With(logging.String("filename", file.Filename))
	path, err := c.download(ctx, file, dir)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Downloading = ""
	if err != nil {
		c.state.DownloadError = downloadPrefix + message(err, downloadFallback)
		logging.WarnWithContext(logger, "catalog download failed", "catalog_download_failed", logging.Error(err))
		return "", err
	}
	c.state.LastSaved = path
	logger.Info("catalog file saved", logging.String("path", path))
	return path, nil
}

func (c *Catalog) download(ctx context.Context, file MediaFile, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("no download directory configured")
	}
	ref := strings.TrimSpace(file.DownloadURL)
	if ref == "" {
		ref = "/download/" + file.Filename
	}
	payload, err := c.source.DownloadFile(ctx, ref)
	if err != nil {
		return "", err
	}

	handle := c.registry.Create(payload.Data, payload.ContentType, file.DisplayName())
	defer handle.Release()

	path, err := handle.SaveTo(dir, "")
	if err != nil {
		return "", fmt.Errorf("save %s: %w", file.DisplayName(), err)
	}
	return path, nil
}

func (c *Catalog) snapshotLocked() State {
	st := c.state
	st.Files = append([]MediaFile(nil), c.state.Files...)
	st.Visible = Apply(c.state.Files, c.state.Filter)
	return st
}

func message(err error, fallback string) string {
	var reqErr *apiclient.RequestError
	if errors.As(err, &reqErr) {
		if msg := strings.TrimSpace(reqErr.Message()); msg != "" {
			return msg
		}
		return fallback
	}
	if err != nil {
		return err.Error()
	}
	return fallback
}
