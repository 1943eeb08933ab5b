package store

import "strings"

// Path builds a document key from segments.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// SessionPath is sessions/{sid}.
func SessionPath(sessionID string) string {
	return Path("sessions", sessionID)
}

// RoundPath is sessions/{sid}/rounds/{rid}.
func RoundPath(sessionID, roundID string) string {
	return Path("sessions", sessionID, "rounds", roundID)
}

// RoundScoresPath is the round-scope ledger.
func RoundScoresPath(sessionID, roundID string) string {
	return Path("sessions", sessionID, "rounds", roundID, "scores")
}

// QuestionPath is the live question record.
func QuestionPath(sessionID, roundID, questionID string) string {
	return Path("sessions", sessionID, "rounds", roundID, "questions", questionID)
}

// ContentPath is the shared base question record.
func ContentPath(questionID string) string {
	return Path("content", "questions", questionID)
}

// TeamPath is sessions/{sid}/teams/{tid}.
func TeamPath(sessionID, teamID string) string {
	return Path("sessions", sessionID, "teams", teamID)
}

// PlayerPath is sessions/{sid}/players/{pid}; organizers and spectators live there too.
func PlayerPath(sessionID, playerID string) string {
	return Path("sessions", sessionID, "players", playerID)
}

// Realtime documents.
const (
	RealtimeScores  = "scores"
	RealtimeTimer   = "timer"
	RealtimeChooser = "chooser"
	RealtimeReady   = "ready"
	RealtimeEffects = "effects"
)

// RealtimePath is sessions/{sid}/realtime/{name}.
func RealtimePath(sessionID, name string) string {
	return Path("sessions", sessionID, "realtime", name)
}

// BelongsTo reports whether path is inside the session's subtree.
func BelongsTo(path, sessionID string) bool {
	root := SessionPath(sessionID)
	return path == root || strings.HasPrefix(path, root+"/")
}
