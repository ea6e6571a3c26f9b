package logging

// LogEntry represents a structured log record with fields relevant to a game
// session.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Session-specific fields
	GameID      string // The game session this record belongs to
	PersonIndex int    // Arrival index at the time of logging, -1 if unknown

	// General structured data
	Fields map[string]interface{}
}
