package apiclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"mediaconv/internal/services"
)

// RequestError is the uniform failure for any authenticated request. It
// matches services.ErrRequestFailed under errors.Is.
type RequestError struct {
	Operation string
	Status    int
	Detail    string
	Err       error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString(e.Operation)
	b.WriteString(": ")
	b.WriteString(e.Detail)
	if e.Status > 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Message returns the text meant for the user: the server detail when one was
// sent, else the operation's generic message.
func (e *RequestError) Message() string {
	return e.Detail
}

func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrRequestFailed}
	}
	return []error{services.ErrRequestFailed, e.Err}
}

// extractDetail pulls the "detail" field out of an error body. FastAPI sends
// either a string or a list of validation entries with "msg" fields.
func extractDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, entry := range entries {
			if msg := strings.TrimSpace(entry.Msg); msg != "" {
				msgs = append(msgs, msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
