package pipeline

// Status phrases shown to the user. Every cycle outcome maps onto exactly one
// of these.
const (
	StatusIdle                = "Idle"
	StatusKeysMissing         = "Stopped - API keys missing"
	StatusSettingsUnavailable = "Stopped - settings unavailable"
	StatusCapturing           = "Capturing..."
	StatusCaptureFailed       = "Camera capture failed"
	StatusExtracting          = "Extracting text..."
	StatusExtractFailed       = "Text extraction failed"
	StatusNoText              = "No text found"
	StatusAnswering           = "Getting answer..."
	StatusAnswerFailed        = "Answer lookup failed"
	StatusComplete            = "Complete"
)

// AnswerErrorMarker replaces the answer when the completion call fails.
const AnswerErrorMarker = "ERR"
