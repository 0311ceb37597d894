package constants

import "time"

// DefaultTypingInterval is how often the pacer reveals one queued character.
const DefaultTypingInterval = 40 * time.Millisecond

// DefaultBottomThreshold is the sentinel intersection ratio at which the viewport
// counts as being at its bottom edge.
const DefaultBottomThreshold = 0.1

// DefaultScrollQuietWindow is how long after the last user scroll signal the user
// is still considered to be scrolling.
const DefaultScrollQuietWindow = 300 * time.Millisecond

// DefaultAutoScrollDebounce coalesces auto-scroll requests issued while typing.
const DefaultAutoScrollDebounce = 100 * time.Millisecond

// DefaultAutoScrollMaxWait bounds how long a steady stream of auto-scroll
// requests can hold the debounce off.
const DefaultAutoScrollMaxWait = 400 * time.Millisecond

// DefaultSentinelRows is the height of the bottom marker appended after content.
const DefaultSentinelRows = 1

// Spring parameters for smooth scrolling.
const (
	DefaultSpringFrequency = 6.0
	DefaultSpringDamping   = 1.0
	ScrollAnimationFPS     = 60
)

// StreamReadSize is the buffer size for a single read from the response body.
const StreamReadSize = 4096

// MaxMessageLength mirrors the server-side limit on a single user message.
const MaxMessageLength = 10000

// RequestTimeout caps non-streaming API calls (clear, models, history).
const RequestTimeout = 10 * time.Second

// FallbackModel is used when the model list cannot be fetched.
const FallbackModel = "gemini-2.0-flash"

// PreferenceSelectedModel is the preference key holding the last selected model.
const PreferenceSelectedModel = "selected_model"

// SSE event names exchanged between client and server.
const (
	EventStart = "start"
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// ProviderStreamTimeout caps a single provider stream on the server.
const ProviderStreamTimeout = 5 * time.Minute

// MaxInputHistory limits how many sent messages the input line remembers.
const MaxInputHistory = 100
