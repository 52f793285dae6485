package playback

import "fmt"

// ErrorCode identifies what went wrong inside a streaming engine.
// Keep these stable: metrics and recovery policy depend on them.
type ErrorCode string

const (
	// Per-fragment/per-buffer hiccups, retried internally by the engine
	CodeBufferStall     ErrorCode = "BUFFER_STALL"
	CodeSeekOverHole    ErrorCode = "SEEK_OVER_HOLE"
	CodeFragmentTimeout ErrorCode = "FRAGMENT_TIMEOUT"

	// Network-class failures on the manifest or segment pipeline
	CodeManifestLoad    ErrorCode = "MANIFEST_LOAD"
	CodeManifestTimeout ErrorCode = "MANIFEST_TIMEOUT"
	CodeManifestParse   ErrorCode = "MANIFEST_PARSE"

	// Media/decode-class failures
	CodeBufferAppend ErrorCode = "BUFFER_APPEND"
	CodeDecode       ErrorCode = "DECODE"

	CodeOther ErrorCode = "OTHER"
)

// ErrorClass buckets engine errors into the recovery policy lanes.
type ErrorClass string

const (
	// ClassTransient errors are swallowed and logged only.
	ClassTransient ErrorClass = "transient"
	// ClassNetwork fatal errors trigger one bounded manifest reload.
	ClassNetwork ErrorClass = "network"
	// ClassMedia fatal errors trigger one internal recovery attempt.
	ClassMedia ErrorClass = "media"
	// ClassTerminal destroys the session.
	ClassTerminal ErrorClass = "terminal"
)

// EngineError is an error surfaced by a streaming engine.
type EngineError struct {
	Code   ErrorCode
	Fatal  bool
	Detail string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error %s (fatal=%t): %s", e.Code, e.Fatal, e.Detail)
}

// Classify maps an engine error onto the recovery policy.
// Non-fatal errors are always transient regardless of code.
func Classify(e EngineError) ErrorClass {
	if !e.Fatal {
		return ClassTransient
	}
	switch e.Code {
	case CodeBufferStall, CodeSeekOverHole, CodeFragmentTimeout:
		return ClassTransient
	case CodeManifestLoad, CodeManifestTimeout, CodeManifestParse:
		return ClassNetwork
	case CodeBufferAppend, CodeDecode:
		return ClassMedia
	default:
		return ClassTerminal
	}
}

// FatalKind is the terminal failure surfaced to the caller. Only a small set
// of conditions become user-visible; everything else is recovered or logged.
type FatalKind string

const (
	KindNoReference FatalKind = "NO_REFERENCE"
	KindUnsupported FatalKind = "UNSUPPORTED"
	KindNetwork     FatalKind = "NETWORK"
	KindMedia       FatalKind = "MEDIA"
	KindInternal    FatalKind = "INTERNAL"
)
