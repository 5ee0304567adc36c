// Package constants provides shared constants used throughout concilia.
package constants

import "time"

// Storage
const (
	// StorageKey is the single blob key holding the whole reconciliation state.
	StorageKey = "concilia_ia_v1"

	// DefaultStateFile is the file name used by the file blob backend.
	DefaultStateFile = "state.json"

	// DefaultDataDir is the data directory under the user's home.
	DefaultDataDir = ".concilia"
)

// Timeouts
const (
	// ExtractTimeout bounds a single call to the extraction service.
	ExtractTimeout = 2 * time.Minute

	// CommandTimeout is the default timeout for CLI commands.
	CommandTimeout = 10 * time.Minute

	// StoreTimeout bounds one blob get or set.
	StoreTimeout = 10 * time.Second

	// PreviewTTL is how long an uncommitted import preview is kept by the server.
	PreviewTTL = 30 * time.Minute

	ReadTimeout     = 30 * time.Second
	WriteTimeout    = 3 * time.Minute
	IdleTimeout     = 2 * time.Minute
	ShutdownTimeout = 15 * time.Second
)

// File permission constants
const (
	DirPermissions        = 0o755
	FilePermissions       = 0o644
	SecureFilePermissions = 0o600
)

// Limits
const (
	// MaxUploadBytes caps one uploaded document.
	MaxUploadBytes = 20 << 20

	// HintMaxDistance is the largest edit distance reported as a name hint.
	HintMaxDistance = 3

	// SSEBufferSize is the per-subscriber event buffer.
	SSEBufferSize = 16
)

// Extraction models
const (
	ModelFlash = "gemini-3-flash-preview"
	ModelPro   = "gemini-3-pro-preview"
)
