package catalog

import "strings"

// Filter narrows the visible entries.
type Filter struct {
	Search string
	Type   FileType
}

// Active reports whether the filter hides anything.
func (f Filter) Active() bool {
	return f.Search != "" || (f.Type != "" && f.Type != TypeAll)
}

// Matches reports whether file passes both predicates. The search term is
// matched as typed, surrounding whitespace included.
func (f Filter) Matches(file MediaFile) bool {
	if f.Type != "" && f.Type != TypeAll && file.FileType != f.Type {
		return false
	}
	term := strings.ToLower(f.Search)
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(file.OriginalName), term) ||
		strings.Contains(strings.ToLower(file.Filename), term)
}

// Apply returns the entries of files that match f, in their original order.
// files is never modified.
func Apply(files []MediaFile, f Filter) []MediaFile {
	out := make([]MediaFile, 0, len(files))
	for _, file := range files {
		if f.Matches(file) {
			out = append(out, file)
		}
	}
	return out
}
