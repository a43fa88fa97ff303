// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Image constants
const (
	// MaxUploadSize is the maximum accepted image upload in bytes (20MB)
	MaxUploadSize = 20 << 20

	// MaxFrameSize is the longest side a kiosk frame is scaled to before face detection
	MaxFrameSize = 1280

	// FrameJPEGQuality is the quality used when re-encoding kiosk frames
	FrameJPEGQuality = 85
)

// Kiosk constants
const (
	// DefaultStation names the kiosk when a client does not send one
	DefaultStation = "default"

	// EventChannelBuffer is the buffer size for event listener channels
	EventChannelBuffer = 100

	// SSEKeepAlive is the interval of comment lines sent to idle event streams
	SSEKeepAlive = 30 * time.Second
)

// Request constants
const (
	// MaxJSONBodySize limits JSON request bodies, which may carry a raw embedding
	MaxJSONBodySize = 1 << 20

	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout = 10 * time.Second
)

// Batch enrollment constants
const (
	// DefaultConcurrency is the default number of parallel enrollment workers
	DefaultConcurrency = 4
)
