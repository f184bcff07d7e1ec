package ir

// Version constants for the record schema and extractor.
const (
	// RecordVersion is the output record schema version.
	RecordVersion = "1"

	// ExtractorVersion is the pathminer extractor version.
	ExtractorVersion = "0.1.0"
)
