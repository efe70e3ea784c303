package main

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediaconv/internal/catalog"
)

var titleCaser = cases.Title(language.English)

// fileTypeLabel renders "video_to_audio" as "Video To Audio".
func fileTypeLabel(t catalog.FileType) string {
	if strings.TrimSpace(string(t)) == "" {
		return "Unknown"
	}
	return titleCaser.String(strings.ReplaceAll(string(t), "_", " "))
}

func formatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

func formatCreated(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("Jan 2, 2006 15:04") + " (" + humanize.Time(ts) + ")"
}
