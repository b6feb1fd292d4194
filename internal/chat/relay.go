package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

type State int32

const (
	StateIdle State = iota
	StateGated
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGated:
		return "gated"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Request is the input of one relay run.
type Request struct {
	Model    string
	Messages []ChatMessage
}

// ChunkStream yields raw chunks in arrival order. Next returns io.EOF on a
// natural end of stream. Close releases the upstream connection.
type ChunkStream interface {
	Next() (RawChunk, error)
	Close() error
}

// Upstream opens streaming chat completions.
type Upstream interface {
	OpenStream(ctx context.Context, req Request) (ChunkStream, error)
}

// Callbacks receive the events of a run. Any field may be nil.
type Callbacks struct {
	OnReasoning func(fragment string)
	OnContent   func(fragment string)
	OnComplete  func(msg ChatMessage)
	OnError     func(err error)
}

// Result is the terminal value of a run: a finished message or an error.
type Result struct {
	Message ChatMessage
	Err     error
}

func (r Result) OK() bool { return r.Err == nil }

// Relay drives one upstream stream through the classifier and fans the
// fragments out to the reasoning and content channels. A Relay is single-use.
type Relay struct {
	logger     *slog.Logger
	upstream   Upstream
	gate       Gate
	classifier *Classifier
	state      atomic.Int32
	used       atomic.Bool
}

func NewRelay(log *slog.Logger, upstream Upstream, gate Gate, classifier *Classifier) *Relay {
	if log == nil {
		log = slog.Default()
	}
	if classifier == nil {
		classifier = NewClassifier(nil, nil)
	}
	return &Relay{
		logger:     log.With(slog.String("component", "relay")),
		upstream:   upstream,
		gate:       gate,
		classifier: classifier,
	}
}

func (r *Relay) State() State {
	return State(r.state.Load())
}

func (r *Relay) setState(s State) {
	r.state.Store(int32(s))
}

// Run executes the relay. Exactly one of OnComplete or OnError fires, and
// nothing fires after it. The returned Result mirrors the terminal callback.
func (r *Relay) Run(ctx context.Context, req Request, cb Callbacks) Result {
	if !r.used.CompareAndSwap(false, true) {
		return Result{Err: ErrRelayUsed}
	}

	r.setState(StateGated)
	if err := r.gate.Check(req.Model, req.Messages); err != nil {
		return r.fail(cb, err)
	}
	if r.upstream == nil {
		return r.fail(cb, &UpstreamConnectError{Err: errors.New("upstream not configured")})
	}

	stream, err := r.upstream.OpenStream(ctx, req)
	if err != nil {
		return r.fail(cb, &UpstreamConnectError{Err: err})
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			r.logger.Debug("close upstream stream", slog.Any("error", cerr))
		}
	}()

	r.setState(StateStreaming)
	acc := NewAccumulator()
	for {
		if err := ctx.Err(); err != nil {
			return r.fail(cb, fmt.Errorf("relay cancelled: %w", err))
		}
		raw, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.fail(cb, fmt.Errorf("relay cancelled: %w", ctxErr))
			}
			r.logger.Warn("upstream stream failed",
				slog.String("model", req.Model),
				slog.Int("chunks", acc.ChunkCount()),
				slog.Any("error", err),
			)
			return r.fail(cb, &UpstreamStreamError{Err: err, Chunks: acc.ChunkCount()})
		}

		frag := r.classifier.Classify(raw)
		acc.Observe(frag)
		if frag.Empty() {
			continue
		}
		if frag.Reasoning != "" && cb.OnReasoning != nil {
			cb.OnReasoning(frag.Reasoning)
		}
		if frag.Content != "" && cb.OnContent != nil {
			cb.OnContent(frag.Content)
		}
	}

	msg, err := acc.Finalize()
	if err != nil {
		return r.fail(cb, err)
	}
	r.setState(StateCompleted)
	if cb.OnComplete != nil {
		cb.OnComplete(msg)
	}
	return Result{Message: msg}
}

func (r *Relay) fail(cb Callbacks, err error) Result {
	r.setState(StateFailed)
	if cb.OnError != nil {
		cb.OnError(err)
	}
	return Result{Err: err}
}

// Stream runs the relay in a goroutine. Fragments arrive on the first channel
// in order; it is closed before the single Result is delivered on the second.
// Callers must drain fragments or cancel ctx.
func (r *Relay) Stream(ctx context.Context, req Request) (<-chan Fragment, <-chan Result) {
	fragments := make(chan Fragment, 16)
	results := make(chan Result, 1)
	send := func(f Fragment) {
		select {
		case fragments <- f:
		case <-ctx.Done():
		}
	}
	go func() {
		defer close(results)
		res := r.Run(ctx, req, Callbacks{
			OnReasoning: func(s string) { send(Fragment{Reasoning: s}) },
			OnContent:   func(s string) { send(Fragment{Content: s}) },
		})
		close(fragments)
		results <- res
	}()
	return fragments, results
}
