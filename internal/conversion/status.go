package conversion

// Kind identifies the conversion surface.
type Kind string

const (
	KindTextToAudio  Kind = "text_to_audio"
	KindVideoToAudio Kind = "video_to_audio"
)

// Label returns a short human label for the surface.
func (k Kind) Label() string {
	switch k {
	case KindTextToAudio:
		return "text to audio"
	case KindVideoToAudio:
		return "video to audio"
	default:
		return string(k)
	}
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusSubmitting       Status = "submitting"
	StatusAwaitingArtifact Status = "awaiting_artifact"
	StatusReady            Status = "ready"
	StatusFailed           Status = "failed"
)

// IsActive reports whether a network call for the job is outstanding.
func (s Status) IsActive() bool {
	return s == StatusSubmitting || s == StatusAwaitingArtifact
}

// IsTerminal reports whether the job has settled.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}
