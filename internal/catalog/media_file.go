package catalog

import (
	"fmt"
	"strings"
	"time"
)

// FileType classifies a catalog entry by the conversion that produced it.
type FileType string

const (
	TypeAll          FileType = "all"
	TypeTextToAudio  FileType = "text_to_audio"
	TypeVideoToAudio FileType = "video_to_audio"
)

// ParseFileType accepts the wire values plus the short forms "text" and "video".
func ParseFileType(value string) (FileType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all":
		return TypeAll, nil
	case "text", "text_to_audio", "text-to-audio":
		return TypeTextToAudio, nil
	case "video", "video_to_audio", "video-to-audio":
		return TypeVideoToAudio, nil
	default:
		return "", fmt.Errorf("unknown file type %q (want all, text, or video)", value)
	}
}

// MediaFile is one converted file as listed by the server. Filename is the
// identity key.
type MediaFile struct {
	Filename      string
	OriginalName  string
	FileType      FileType
	FileSizeBytes int64
	CreatedAt     time.Time
	DownloadURL   string
}

// DisplayName is the name shown to the user and used when saving.
func (f MediaFile) DisplayName() string {
	if name := strings.TrimSpace(f.OriginalName); name != "" {
		return name
	}
	return f.Filename
}

// Listing is the result of one catalog fetch, in server order.
type Listing struct {
	Total int
	Files []MediaFile
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses the server's creation timestamps. Values without a
// zone are UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
