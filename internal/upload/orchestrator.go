// Package upload runs batch uploads: a selection is confirmed, then each
// file is sent one at a time and its outcome reported before the next
// one starts.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/filevault/vaultctl/internal/metrics"
	"github.com/filevault/vaultctl/internal/vault"
)

// DefaultFileTimeout bounds a single file's upload.
const DefaultFileTimeout = 5 * time.Minute

var (
	// ErrBusy is returned while a batch is uploading.
	ErrBusy = errors.New("an upload batch is already in progress")
	// ErrNotConfirming is returned by Confirm when no batch awaits confirmation.
	ErrNotConfirming = errors.New("no upload batch awaiting confirmation")
)

// State is the orchestrator's lifecycle position.
type State int

const (
	Idle State = iota
	Confirming
	Uploading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Confirming:
		return "confirming"
	case Uploading:
		return "uploading"
	}
	return "unknown"
}

// Uploader sends one file to the storage service.
type Uploader interface {
	UploadFile(ctx context.Context, ownerID, name string, content io.Reader) (json.RawMessage, error)
}

// Callbacks receive batch progress. OnResult is called once per file in
// file order; OnComplete once per batch, after the last OnResult. Both
// run on the goroutine that called Confirm.
type Callbacks struct {
	OnResult   func(Result)
	OnComplete func(BatchResult)
}

// Orchestrator moves a batch from selection through confirmation to a
// sequential upload.
type Orchestrator struct {
	api         Uploader
	callbacks   Callbacks
	fileTimeout time.Duration
	logger      *slog.Logger

	mu    sync.Mutex
	state State
	batch []Task
	done  int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFileTimeout sets the per-file upload timeout. Zero or negative
// disables it.
func WithFileTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.fileTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an idle Orchestrator.
func New(api Uploader, callbacks Callbacks, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:         api,
		callbacks:   callbacks,
		fileTimeout: DefaultFileTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(slog.String("component", "uploader"))
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Batch returns a copy of the selected batch.
func (o *Orchestrator) Batch() []Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Task, len(o.batch))
	copy(out, o.batch)
	return out
}

// Progress returns how many files of the batch have finished.
func (o *Orchestrator) Progress() (done, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done, len(o.batch)
}

// Select captures tasks as the batch and waits for confirmation. An empty
// selection changes nothing. A new selection replaces one that is
// awaiting confirmation.
func (o *Orchestrator) Select(tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Uploading {
		return ErrBusy
	}
	o.batch = append([]Task(nil), tasks...)
	o.done = 0
	o.state = Confirming
	return nil
}

// Cancel drops a batch awaiting confirmation.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case Uploading:
		return ErrBusy
	case Confirming:
		o.reset()
	}
	return nil
}

func (o *Orchestrator) reset() {
	o.state = Idle
	o.batch = nil
	o.done = 0
}

// Confirm uploads the batch on behalf of id, one file at a time. A failed
// file does not stop the batch. Without an identity the batch is dropped
// before any request and a *vault.PreconditionError is returned; no
// callback runs. Otherwise the returned BatchResult is the one passed to
// OnComplete.
func (o *Orchestrator) Confirm(ctx context.Context, id vault.Identity) (BatchResult, error) {
	o.mu.Lock()
	if o.state != Confirming {
		o.mu.Unlock()
		if o.state == Uploading {
			return BatchResult{}, ErrBusy
		}
		return BatchResult{}, ErrNotConfirming
	}
	if err := vault.RequireIdentity("upload", id); err != nil {
		o.reset()
		o.mu.Unlock()
		o.logger.Warn("upload batch dropped without identity")
		return BatchResult{}, err
	}
	o.state = Uploading
	batch := o.batch
	o.mu.Unlock()

	o.logger.Info("uploading batch", slog.Int("files", len(batch)))

	var result BatchResult
	for i, task := range batch {
		r := o.uploadOne(ctx, id, i, task)
		result.add(r)
		metrics.ObserveUpload(r.Kind.String())

		o.mu.Lock()
		o.done = i + 1
		o.mu.Unlock()

		if r.OK() {
			o.logger.Debug("file uploaded", slog.String("name", r.Name))
		} else {
			o.logger.Warn("file upload failed",
				slog.String("name", r.Name),
				slog.String("kind", r.Kind.String()),
				slog.Any("error", r.Err),
			)
		}
		if o.callbacks.OnResult != nil {
			o.callbacks.OnResult(r)
		}
	}

	o.mu.Lock()
	o.reset()
	o.mu.Unlock()

	metrics.ObserveBatch(result.Summary().String())
	o.logger.Info("upload batch finished",
		slog.Int("succeeded", result.SuccessCount),
		slog.Int("failed", result.ErrorCount),
	)
	if o.callbacks.OnComplete != nil {
		o.callbacks.OnComplete(result)
	}
	return result, nil
}

func (o *Orchestrator) uploadOne(ctx context.Context, id vault.Identity, index int, task Task) Result {
	if o.fileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.fileTimeout)
		defer cancel()
	}

	if task.Open == nil {
		return classify(index, task.Name, nil, errors.New("no content"))
	}
	content, err := task.Open()
	if err != nil {
		return classify(index, task.Name, nil, err)
	}
	defer content.Close()

	raw, err := o.api.UploadFile(ctx, id.UserID, task.Name, content)
	return classify(index, task.Name, raw, err)
}
