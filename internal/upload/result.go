package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/filevault/vaultctl/internal/vault"
)

// Kind classifies how one file's upload ended.
type Kind int

const (
	// Succeeded means a 2xx response with a JSON body.
	Succeeded Kind = iota
	// NetworkFailed means no response arrived.
	NetworkFailed
	// Rejected means a non-2xx response.
	Rejected
	// Malformed means a 2xx response whose body was not JSON.
	Malformed
	// Unreadable means the local content could not be opened or read.
	Unreadable
)

func (k Kind) String() string {
	switch k {
	case Succeeded:
		return "success"
	case NetworkFailed:
		return "network"
	case Rejected:
		return "server"
	case Malformed:
		return "malformed"
	case Unreadable:
		return "local"
	}
	return "unknown"
}

// Result is the outcome of one file, reported as soon as it is known.
type Result struct {
	Index    int
	Name     string
	Kind     Kind
	Message  string
	Err      error
	Response json.RawMessage
}

// OK reports whether the file was stored.
func (r Result) OK() bool {
	return r.Kind == Succeeded
}

// Summary is the overall verdict on a batch.
type Summary int

const (
	AllSucceeded Summary = iota
	PartiallySucceeded
	AllFailed
)

func (s Summary) String() string {
	switch s {
	case AllSucceeded:
		return "success"
	case PartiallySucceeded:
		return "partial"
	default:
		return "failure"
	}
}

// BatchResult tallies a finished batch. Results are in file order.
type BatchResult struct {
	SuccessCount int
	ErrorCount   int
	Results      []Result
}

// Summary classifies the batch. A batch is never empty, so at least one
// of the counts is positive.
func (b BatchResult) Summary() Summary {
	switch {
	case b.ErrorCount == 0:
		return AllSucceeded
	case b.SuccessCount > 0:
		return PartiallySucceeded
	default:
		return AllFailed
	}
}

// Message is the line shown when a batch completes.
func (b BatchResult) Message() string {
	switch b.Summary() {
	case AllSucceeded:
		return fmt.Sprintf("%d file(s) uploaded successfully!", b.SuccessCount)
	case PartiallySucceeded:
		return fmt.Sprintf("%d file(s) uploaded, %d file(s) failed.", b.SuccessCount, b.ErrorCount)
	default:
		return fmt.Sprintf("All %d file(s) failed to upload.", b.ErrorCount)
	}
}

func (b *BatchResult) add(r Result) {
	if r.OK() {
		b.SuccessCount++
	} else {
		b.ErrorCount++
	}
	b.Results = append(b.Results, r)
}

// classify turns the error of one upload into a Result.
func classify(index int, name string, raw json.RawMessage, err error) Result {
	r := Result{Index: index, Name: name, Err: err, Response: raw}

	var (
		ne *vault.NetworkError
		se *vault.ServerError
		me *vault.MalformedResponseError
	)
	switch {
	case err == nil:
		r.Kind = Succeeded
		r.Message = fmt.Sprintf("File '%s' uploaded successfully!", name)
	case errors.As(err, &ne):
		r.Kind = NetworkFailed
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			r.Message = fmt.Sprintf("Upload of %s timed out.", name)
		case ne.Err != nil && ne.Err.Error() != "":
			r.Message = ne.Err.Error()
		default:
			r.Message = fmt.Sprintf("An unknown error occurred during upload of %s.", name)
		}
	case errors.As(err, &se):
		r.Kind = Rejected
		switch {
		case se.JSON && se.Message != "":
			r.Message = se.Message
		case se.JSON:
			r.Message = fmt.Sprintf("File upload failed for %s", name)
		default:
			body := strings.TrimSpace(se.Body)
			if body == "" {
				body = "Unknown error"
			}
			r.Message = fmt.Sprintf("Server error for %s: %s", name, body)
		}
	case errors.As(err, &me):
		r.Kind = Malformed
		r.Message = fmt.Sprintf("File %s uploaded, but response was malformed.", name)
	default:
		r.Kind = Unreadable
		r.Message = fmt.Sprintf("Could not read %s: %v", name, err)
	}
	return r
}
