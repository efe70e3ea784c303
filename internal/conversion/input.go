package conversion

import (
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// Input is a validated payload for one conversion surface.
type Input interface {
	Kind() Kind
	Validate() error
	// SuggestedName is the local file name for the produced audio.
	SuggestedName() string
}

// TextInput is the text-to-speech payload.
type TextInput struct {
	Text     string
	Language string
}

// Kind implements Input.
func (TextInput) Kind() Kind { return KindTextToAudio }

// Validate requires non-blank text and a supported language.
func (in TextInput) Validate() error {
	if strings.TrimSpace(in.Text) == "" {
		return &ValidationError{Field: "text", Reason: "Enter some text to convert"}
	}
	if _, ok := LookupLanguage(in.Language); !ok {
		return &ValidationError{Field: "language", Reason: "Select a supported language (" + languageCodes() + ")"}
	}
	return nil
}

// SuggestedName implements Input.
func (TextInput) SuggestedName() string { return "converted-audio.mp3" }

// Normalized returns the input with the language reduced to its canonical code.
func (in TextInput) Normalized() TextInput {
	if lang, ok := LookupLanguage(in.Language); ok {
		in.Language = lang.Code
	}
	return in
}

// VideoInput is the video-to-audio payload. Content is streamed once during
// submission.
type VideoInput struct {
	Name     string
	Size     int64
	MIMEType string
	Content  io.Reader
}

// Kind implements Input.
func (VideoInput) Kind() Kind { return KindVideoToAudio }

// Validate requires a selected file in an accepted container. Size is left to
// the server.
func (in VideoInput) Validate() error {
	if in.Content == nil || strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "file", Reason: "Select a video file to convert"}
	}
	if !AcceptedContainer(in.Name, in.MIMEType) {
		return &ValidationError{
			Field:  "file",
			Reason: "Unsupported file type " + describeType(in.Name) + "; accepted formats are " + strings.Join(ContainerNames(), ", "),
		}
	}
	return nil
}

// SuggestedName implements Input.
func (in VideoInput) SuggestedName() string {
	base := filepath.Base(strings.ReplaceAll(in.Name, "\\", "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		stem = "video"
	}
	return "extracted-" + stem + ".mp3"
}

// ContentType returns the declared MIME type, or one derived from the name.
func (in VideoInput) ContentType() string {
	if in.MIMEType != "" {
		return in.MIMEType
	}
	ext := strings.ToLower(filepath.Ext(in.Name))
	for _, c := range containers {
		if contains(c.exts, ext) {
			return c.mimes[0]
		}
	}
	return "application/octet-stream"
}

type container struct {
	name  string
	exts  []string
	mimes []string
}

var containers = []container{
	{name: "MP4", exts: []string{".mp4", ".m4v"}, mimes: []string{"video/mp4"}},
	{name: "MOV", exts: []string{".mov"}, mimes: []string{"video/quicktime"}},
	{name: "AVI", exts: []string{".avi"}, mimes: []string{"video/x-msvideo", "video/avi", "video/msvideo"}},
	{name: "MKV", exts: []string{".mkv"}, mimes: []string{"video/x-matroska", "video/matroska"}},
}

// ContainerNames lists the accepted video containers.
func ContainerNames() []string {
	names := make([]string, 0, len(containers))
	for _, c := range containers {
		names = append(names, c.name)
	}
	return names
}

// AcceptedContainer reports whether a file is an allowed video container. The
// extension must be on the allow-list; a specific MIME type, when given, must
// agree with it.
func AcceptedContainer(name, mimeType string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	mediaType := ""
	if mimeType != "" {
		if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
			mediaType = strings.ToLower(parsed)
		} else {
			return false
		}
	}
	for _, c := range containers {
		if !contains(c.exts, ext) {
			continue
		}
		if mediaType == "" || mediaType == "application/octet-stream" {
			return true
		}
		return contains(c.mimes, mediaType)
	}
	return false
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func describeType(name string) string {
	if ext := filepath.Ext(name); ext != "" {
		return strings.ToLower(ext)
	}
	return "(no extension)"
}

func languageCodes() string {
	langs := SupportedLanguages()
	codes := make([]string, 0, len(langs))
	for _, lang := range langs {
		codes = append(codes, lang.Code)
	}
	return strings.Join(codes, ", ")
}
