package prompts

import "strings"

// DefaultVoice is the text-to-speech voice used for every spoken prompt.
const DefaultVoice = "Google.en-US-Chirp3-HD-Kore"

const (
	outOfService      = "We're sorry, the number you have dialed is not in service."
	internalError     = "We are sorry, an internal error has occurred."
	voicemailGreeting = "We are sorry, no one is available to take your call. Please leave a message after the beep."
	smsPreamble       = "New Voicemail! You have a new message from"
)

// Catalog holds the fixed spoken prompts and the voice that speaks them.
// The zero value is not useful; start from Default.
type Catalog struct {
	Voice string

	OutOfService      string
	InternalError     string
	VoicemailGreeting string

	// SMSPreamble starts the voicemail notification text.
	SMSPreamble string
}

// Default returns the built-in catalog.
func Default() Catalog {
	return Catalog{
		Voice:             DefaultVoice,
		OutOfService:      outOfService,
		InternalError:     internalError,
		VoicemailGreeting: voicemailGreeting,
		SMSPreamble:       smsPreamble,
	}
}

// New returns Default with an optional voice override and a contact hint
// appended to the out-of-service and internal-error prompts.
func New(voice, contactHint string) Catalog {
	c := Default()
	if v := strings.TrimSpace(voice); v != "" {
		c.Voice = v
	}
	if h := strings.TrimSpace(contactHint); h != "" {
		c.OutOfService += " " + h
		c.InternalError += " " + h
	}
	return c
}

// VoicemailNotice composes the SMS body sent to the office.
func (c Catalog) VoicemailNotice(callerNumber, recordingURL string) string {
	return c.SMSPreamble + " " + callerNumber + ". Listen here: " + recordingURL
}
