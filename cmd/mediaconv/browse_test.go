package main

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"mediaconv/internal/apiclient"
	"mediaconv/internal/catalog"
)

type browseSource struct {
	listing  catalog.Listing
	listErr  error
	fetchErr error
}

func (s *browseSource) ListFiles(context.Context) (catalog.Listing, error) {
	return s.listing, s.listErr
}

func (s *browseSource) DownloadFile(context.Context, string) (apiclient.Payload, error) {
	if s.fetchErr != nil {
		return apiclient.Payload{}, s.fetchErr
	}
	return apiclient.Payload{Data: []byte("audio")}, nil
}

func newLoadedBrowseModel(t *testing.T, source *browseSource) browseModel {
	t.Helper()
	cat, err := catalog.New(catalog.Options{Source: source, DownloadDir: t.TempDir()})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	m := newBrowseModel(context.Background(), cat)
	msg := m.Init()()
	model, _ := m.Update(msg)
	return model.(browseModel)
}

func browseFixture() *browseSource {
	return &browseSource{listing: catalog.Listing{Total: 3, Files: []catalog.MediaFile{
		{Filename: "a.mp3", OriginalName: "Alpha", FileType: catalog.TypeTextToAudio},
		{Filename: "b.mp3", OriginalName: "Beta", FileType: catalog.TypeVideoToAudio},
		{Filename: "c.mp3", OriginalName: "Gamma", FileType: catalog.TypeVideoToAudio},
	}}}
}

func TestBrowseLoadsAndCyclesType(t *testing.T) {
	m := newLoadedBrowseModel(t, browseFixture())
	if len(m.state.Visible) != 3 || m.busy != "" {
		t.Fatalf("expected three visible files, got %d (busy=%q)", len(m.state.Visible), m.busy)
	}
	if !strings.Contains(m.View(), "Alpha") {
		t.Fatal("expected Alpha in view")
	}

	model, _ := m.updateBrowse(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	m = model.(browseModel)
	if m.state.Filter.Type != catalog.TypeTextToAudio || len(m.state.Visible) != 1 {
		t.Fatalf("expected text filter, got %s with %d visible", m.state.Filter.Type, len(m.state.Visible))
	}

	model, _ = m.updateBrowse(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	m = model.(browseModel)
	if m.state.Filter.Type != catalog.TypeVideoToAudio || len(m.state.Visible) != 2 {
		t.Fatalf("expected video filter, got %s with %d visible", m.state.Filter.Type, len(m.state.Visible))
	}

	model, _ = m.updateBrowse(tea.KeyMsg{Type: tea.KeyEsc})
	m = model.(browseModel)
	if m.state.Filter.Type != catalog.TypeAll || len(m.state.Visible) != 3 {
		t.Fatal("esc should reset filters")
	}
}

func TestBrowseSearchNarrowsList(t *testing.T) {
	m := newLoadedBrowseModel(t, browseFixture())

	model, _ := m.updateBrowse(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	m = model.(browseModel)
	if !m.searching {
		t.Fatal("expected search mode")
	}
	for _, r := range "GAM" {
		model, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = model.(browseModel)
	}
	if len(m.state.Visible) != 1 || m.state.Visible[0].Filename != "c.mp3" {
		t.Fatalf("expected only Gamma, got %+v", m.state.Visible)
	}

	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m = model.(browseModel)
	if !strings.Contains(m.View(), "Try adjusting your search or filters") {
		t.Fatal("expected filtered empty hint")
	}
}

func TestBrowseDownloadReportsErrorsSeparately(t *testing.T) {
	source := browseFixture()
	m := newLoadedBrowseModel(t, source)

	model, cmd := m.updateBrowse(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(browseModel)
	if cmd == nil || !strings.HasPrefix(m.busy, "downloading Alpha") {
		t.Fatalf("expected download to start, busy=%q", m.busy)
	}
	model, _ = m.Update(cmd())
	m = model.(browseModel)
	if !strings.HasPrefix(m.statusMessage, "saved ") {
		t.Fatalf("expected saved status, got %q", m.statusMessage)
	}

	source.fetchErr = &apiclient.RequestError{Operation: "download file", Status: 403, Detail: "Download failed"}
	model, cmd = m.updateBrowse(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(browseModel)
	model, _ = m.Update(cmd())
	m = model.(browseModel)
	view := m.View()
	if !strings.Contains(view, "Failed to download file: Download failed") {
		t.Fatalf("expected download error in view:\n%s", view)
	}
	if len(m.state.Visible) != 3 || m.state.LoadError != "" {
		t.Fatal("download failure must not affect the list")
	}
}

func TestBrowseReloadFailureKeepsList(t *testing.T) {
	source := browseFixture()
	m := newLoadedBrowseModel(t, source)

	source.listErr = &apiclient.RequestError{Operation: "list files", Status: 500, Detail: "Failed to fetch files"}
	model, cmd := m.updateBrowse(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = model.(browseModel)
	model, _ = m.Update(cmd())
	m = model.(browseModel)
	if len(m.state.Visible) != 3 {
		t.Fatalf("expected last good list retained, got %d", len(m.state.Visible))
	}
	if !strings.Contains(m.View(), "Failed to fetch files") {
		t.Fatal("expected load error banner")
	}
}

func TestBrowseCursorBounds(t *testing.T) {
	m := newLoadedBrowseModel(t, browseFixture())
	for i := 0; i < 5; i++ {
		model, _ := m.updateBrowse(tea.KeyMsg{Type: tea.KeyDown})
		m = model.(browseModel)
	}
	if m.cursor != 2 {
		t.Fatalf("expected cursor clamped at 2, got %d", m.cursor)
	}
	model, _ := m.updateBrowse(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	m = model.(browseModel)
	if m.cursor != 0 {
		t.Fatalf("expected cursor reset, got %d", m.cursor)
	}
	model, _ = m.updateBrowse(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if _, ok := model.(browseModel); !ok {
		t.Fatal("expected browse model")
	}
	if nextFileType("bogus") != catalog.TypeAll {
		t.Fatal("unknown type should reset to all")
	}
}
