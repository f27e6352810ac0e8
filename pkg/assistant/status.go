package assistant

// Status is the single pipeline state. Exactly one value is active at a
// time; it doubles as the guard that keeps runs from overlapping.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusRecording    Status = "recording"
	StatusTranscribing Status = "transcribing"
	StatusResearching  Status = "researching"
	StatusThinking     Status = "thinking"
	StatusSpeaking     Status = "speaking"
)

// NoticeLevel separates blocking errors from non-fatal warnings.
type NoticeLevel string

const (
	// NoticeError marks a stage failure that aborted the run.
	NoticeError NoticeLevel = "error"

	// NoticeWarning marks a non-fatal condition, like speech being
	// unavailable while the text answer stands.
	NoticeWarning NoticeLevel = "warning"
)

// Notice is one user-visible message produced by a failed or degraded run.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}
