package calls

import "strings"

// DialStatus is the outcome of a bridged leg as reported in the provider's
// DialCallStatus parameter when the fallback action fires.
type DialStatus string

const (
	DialStatusCompleted DialStatus = "completed"
	DialStatusAnswered  DialStatus = "answered"
	DialStatusBusy      DialStatus = "busy"
	DialStatusNoAnswer  DialStatus = "no-answer"
	DialStatusFailed    DialStatus = "failed"
	DialStatusCanceled  DialStatus = "canceled"
)

// ParseDialStatus normalizes a raw DialCallStatus. Unknown values are kept
// so they can be logged.
func ParseDialStatus(s string) DialStatus {
	return DialStatus(strings.ToLower(strings.TrimSpace(s)))
}

// Connected reports whether the office picked up and the conversation took
// place, in which case no voicemail should be taken.
func (s DialStatus) Connected() bool {
	return s == DialStatusCompleted || s == DialStatusAnswered
}

// Missed reports whether the caller never reached the office.
func (s DialStatus) Missed() bool {
	switch s {
	case DialStatusBusy, DialStatusNoAnswer, DialStatusFailed, DialStatusCanceled:
		return true
	default:
		return false
	}
}
