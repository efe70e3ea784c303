package conversion

import (
	"errors"
	"strings"

	"mediaconv/internal/apiclient"
	"mediaconv/internal/services"
)

const (
	submitFallback = "Conversion failed"
	// artifactFailurePrefix marks failures where the server finished the job
	// but the produced audio could not be fetched.
	artifactFailurePrefix = "Conversion succeeded but the audio could not be retrieved"
)

// ValidationError is a local pre-flight rejection. No request is issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return services.ErrValidation
}

// ArtifactError is a request failure during the second-phase artifact fetch.
type ArtifactError struct {
	URL string
	Err error
}

func (e *ArtifactError) Error() string {
	msg := userMessage(e.Err, "Failed to load audio")
	return artifactFailurePrefix + ": " + msg
}

func (e *ArtifactError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrArtifactRetrieval}
	}
	return []error{services.ErrArtifactRetrieval, e.Err}
}

// userMessage returns the text to show for a failure.
func userMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var artifactErr *ArtifactError
	if errors.As(err, &artifactErr) {
		return artifactErr.Error()
	}
	var reqErr *apiclient.RequestError
	if errors.As(err, &reqErr) {
		if msg := strings.TrimSpace(reqErr.Message()); msg != "" {
			return msg
		}
	}
	return fallback
}
