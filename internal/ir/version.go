package ir

// Version constants for the persisted format and engine.
const (
	// FormatVersion is the persisted graph format version.
	FormatVersion = "1"

	// EngineVersion is the nodeplay engine version.
	EngineVersion = "0.1.0"
)
