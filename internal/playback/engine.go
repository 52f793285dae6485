package playback

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// EngineEventKind is what an engine reports upward.
type EngineEventKind string

const (
	EngineLoading EngineEventKind = "LOADING"
	EngineReady   EngineEventKind = "READY"
	EngineEnded   EngineEventKind = "ENDED"
	EngineFailure EngineEventKind = "FAILURE"
)

// EngineEvent carries an engine signal to the session manager.
// Err is set only for EngineFailure.
type EngineEvent struct {
	Kind EngineEventKind
	Err  *EngineError
}

// Sink receives engine events. Engines emit events synchronously from Load
// and RecoverMedia; the manager serializes handling.
type Sink func(EngineEvent)

// Engine is a streaming engine attached to exactly one manifest at a time.
type Engine interface {
	Name() string
	// Load attaches the engine to a manifest and emits loading/ready or a
	// failure event into sink.
	Load(ctx context.Context, manifestURL string, sink Sink) error
	// RecoverMedia performs the engine's one-shot media recovery.
	RecoverMedia(ctx context.Context) error
	// Close detaches the engine and releases its resources. Idempotent.
	Close() error
}

// Factory selects an engine for the playback target. Native adaptive-streaming
// support is preferred; a software demuxing engine is the fallback.
type Factory interface {
	Native() (Engine, bool)
	Software() (Engine, bool)
}

// Capabilities describes what the playback target supports.
type Capabilities struct {
	Native   bool
	Software bool
}

// CapabilityFactory builds engines according to static target capabilities.
type CapabilityFactory struct {
	Caps    Capabilities
	Timeout time.Duration // manifest load timeout for the software engine
}

func (f CapabilityFactory) Native() (Engine, bool) {
	if !f.Caps.Native {
		return nil, false
	}
	return &nativeEngine{}, true
}

func (f CapabilityFactory) Software() (Engine, bool) {
	if !f.Caps.Software {
		return nil, false
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &softwareEngine{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, true
}

// nativeEngine represents a target with built-in adaptive-streaming support:
// the manifest is handed to the target as-is and playback starts immediately.
type nativeEngine struct {
	closed bool
}

func (e *nativeEngine) Name() string { return "native" }

func (e *nativeEngine) Load(_ context.Context, _ string, sink Sink) error {
	if e.closed {
		return errors.New("native engine: load after close")
	}
	sink(EngineEvent{Kind: EngineLoading})
	sink(EngineEvent{Kind: EngineReady})
	return nil
}

func (e *nativeEngine) RecoverMedia(context.Context) error { return nil }

func (e *nativeEngine) Close() error {
	e.closed = true
	return nil
}

// softwareEngine is the software demuxing path: it loads the manifest over
// HTTP and verifies it is an HLS playlist before declaring readiness.
type softwareEngine struct {
	http   *http.Client
	closed bool
}

func (e *softwareEngine) Name() string { return "software" }

func (e *softwareEngine) Load(ctx context.Context, manifestURL string, sink Sink) error {
	if e.closed {
		return errors.New("software engine: load after close")
	}
	sink(EngineEvent{Kind: EngineLoading})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		sink(EngineEvent{Kind: EngineFailure, Err: &EngineError{
			Code: CodeManifestLoad, Fatal: true, Detail: err.Error(),
		}})
		return nil
	}

	resp, err := e.http.Do(req)
	if err != nil {
		code := CodeManifestLoad
		if errors.Is(err, context.DeadlineExceeded) {
			code = CodeManifestTimeout
		}
		sink(EngineEvent{Kind: EngineFailure, Err: &EngineError{
			Code: code, Fatal: true, Detail: err.Error(),
		}})
		return nil
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		sink(EngineEvent{Kind: EngineFailure, Err: &EngineError{
			Code: CodeManifestLoad, Fatal: true,
			Detail: "unexpected status " + resp.Status,
		}})
		return nil
	}

	head := make([]byte, 16)
	n, _ := io.ReadFull(resp.Body, head)
	if !strings.HasPrefix(string(head[:n]), "#EXTM3U") {
		sink(EngineEvent{Kind: EngineFailure, Err: &EngineError{
			Code: CodeManifestParse, Fatal: true, Detail: "manifest missing #EXTM3U header",
		}})
		return nil
	}

	sink(EngineEvent{Kind: EngineReady})
	return nil
}

func (e *softwareEngine) RecoverMedia(context.Context) error {
	if e.closed {
		return errors.New("software engine: recover after close")
	}
	// Media recovery flushes the demuxer state; the next fragment append
	// restarts from a keyframe.
	return nil
}

func (e *softwareEngine) Close() error {
	e.closed = true
	return nil
}
