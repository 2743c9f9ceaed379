package telephony

import (
	"net/http"
	"strings"
)

// Webhook inputs for the three call-flow stages.
// Twilio sends application/x-www-form-urlencoded by default; the upstream
// Studio flow may also pass parameters on the query string. Both are read.
// Ref: https://www.twilio.com/docs/voice/twiml

// ForwardRequest is the entry webhook: which provider number rang and who called.
type ForwardRequest struct {
	CallSid      string
	CalledNumber string
	Caller       string
}

// VoicemailRequest is the bridge's fallback action.
type VoicemailRequest struct {
	CallSid        string
	SMSTarget      string
	DialCallStatus string
}

// RecordingCallback is the recording status callback fired once the voicemail
// recording has been processed.
type RecordingCallback struct {
	CallSid         string
	To              string
	CallFrom        string
	RecordingURL    string
	RecordingSid    string
	RecordingStatus string
	SMSTarget       string
}

// Query parameter names threaded through callback URLs. The signature is
// checked by auth.RequireSignedTarget before a handler parses the request.
const (
	ParamSMSTarget = "smsTarget"
	ParamSignature = "sig"
)

func ParseForwardRequest(r *http.Request) (ForwardRequest, error) {
	if err := r.ParseForm(); err != nil {
		return ForwardRequest{}, err
	}
	return ForwardRequest{
		CallSid:      r.FormValue("CallSid"),
		CalledNumber: NormalizePhone(r.FormValue("calledNumber")),
		Caller:       NormalizePhone(r.FormValue("caller")),
	}, nil
}

func ParseVoicemailRequest(r *http.Request) (VoicemailRequest, error) {
	if err := r.ParseForm(); err != nil {
		return VoicemailRequest{}, err
	}
	return VoicemailRequest{
		CallSid:        r.FormValue("CallSid"),
		SMSTarget:      NormalizePhone(r.URL.Query().Get(ParamSMSTarget)),
		DialCallStatus: strings.TrimSpace(r.FormValue("DialCallStatus")),
	}, nil
}

func ParseRecordingCallback(r *http.Request) (RecordingCallback, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingCallback{}, err
	}
	f := RecordingCallback{
		CallSid:         r.FormValue("CallSid"),
		To:              NormalizePhone(r.FormValue("To")),
		CallFrom:        NormalizePhone(r.FormValue("CallFrom")),
		RecordingURL:    strings.TrimSpace(r.FormValue("RecordingUrl")),
		RecordingSid:    r.FormValue("RecordingSid"),
		RecordingStatus: r.FormValue("RecordingStatus"),
		SMSTarget:       NormalizePhone(r.URL.Query().Get(ParamSMSTarget)),
	}
	if f.CallFrom == "" {
		f.CallFrom = NormalizePhone(r.FormValue("From"))
	}
	return f, nil
}

// NormalizePhone trims whitespace. An unescaped "+" in a query string decodes
// to a space, so " 15550100" is restored to "+15550100".
// Twilio sometimes sends "anonymous"; that is kept as-is.
func NormalizePhone(s string) string {
	if s == "" {
		return ""
	}
	lost := s[0] == ' '
	s = strings.TrimSpace(s)
	if lost && isDigits(s) {
		return "+" + s
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
