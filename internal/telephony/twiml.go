package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// Response is a provider-agnostic voice-response document: an ordered list of
// verbs rendered to TwiML at the HTTP boundary by RenderTwiML.
type Response struct {
	Verbs []Verb
}

// Verb is one directive of a Response. The set is closed: Say, Hangup, Dial, Record.
type Verb interface {
	isVerb()
}

// Say speaks Text with an explicit voice identity.
type Say struct {
	Voice string
	Text  string
}

// Hangup ends the call.
type Hangup struct{}

// Dial bridges the current leg to the dialed Numbers.
//
// Action is fetched by the provider when the bridged leg ends without a
// completed conversation. Record selects the recording mode of the bridge.
type Dial struct {
	CallerID string
	Action   string
	Record   string
	Numbers  []Number
}

// Number is a dialed destination. URL, when set, is fetched and played to the
// answering party before the legs are connected (the whisper).
type Number struct {
	URL    string
	Number string
}

// Record captures the caller's audio and reports completion to StatusCallback.
type Record struct {
	StatusCallback      string
	StatusCallbackEvent string
}

func (Say) isVerb()    {}
func (Hangup) isVerb() {}
func (Dial) isVerb()   {}
func (Record) isVerb() {}

// Recording modes and callback events used by the call flow.
const (
	RecordFromAnswerDual    = "record-from-answer-dual"
	RecordingEventCompleted = "completed"
)

func (r *Response) Say(voice, text string) *Response {
	r.Verbs = append(r.Verbs, Say{Voice: voice, Text: text})
	return r
}

func (r *Response) Hangup() *Response {
	r.Verbs = append(r.Verbs, Hangup{})
	return r
}

func (r *Response) Dial(d Dial) *Response {
	r.Verbs = append(r.Verbs, d)
	return r
}

func (r *Response) Record(rec Record) *Response {
	r.Verbs = append(r.Verbs, rec)
	return r
}

// Dials returns the Dial verbs of the document in order.
func (r Response) Dials() []Dial {
	var out []Dial
	for _, v := range r.Verbs {
		if d, ok := v.(Dial); ok {
			out = append(out, d)
		}
	}
	return out
}

// TwiML wire shapes. Kept unexported; callers build Responses.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlDial struct {
	XMLName  xml.Name      `xml:"Dial"`
	CallerID string        `xml:"callerId,attr,omitempty"`
	Action   string        `xml:"action,attr,omitempty"`
	Record   string        `xml:"record,attr,omitempty"`
	Numbers  []twimlNumber `xml:"Number"`
}

type twimlNumber struct {
	URL    string `xml:"url,attr,omitempty"`
	Number string `xml:",chardata"`
}

type twimlRecord struct {
	XMLName                      xml.Name `xml:"Record"`
	RecordingStatusCallback      string   `xml:"recordingStatusCallback,attr,omitempty"`
	RecordingStatusCallbackEvent string   `xml:"recordingStatusCallbackEvent,attr,omitempty"`
}

// RenderTwiML renders a Response as a TwiML document.
func RenderTwiML(res Response) (string, error) {
	var r twimlResponse

	for _, v := range res.Verbs {
		switch v := v.(type) {
		case Say:
			r.Verbs = append(r.Verbs, twimlSay{Voice: v.Voice, Text: v.Text})
		case Hangup:
			r.Verbs = append(r.Verbs, twimlHangup{})
		case Dial:
			if len(v.Numbers) == 0 {
				return "", errors.New("telephony: dial requires at least one number")
			}
			d := twimlDial{CallerID: v.CallerID, Action: v.Action, Record: v.Record}
			for _, n := range v.Numbers {
				if strings.TrimSpace(n.Number) == "" {
					return "", errors.New("telephony: dial number is empty")
				}
				d.Numbers = append(d.Numbers, twimlNumber{URL: n.URL, Number: n.Number})
			}
			r.Verbs = append(r.Verbs, d)
		case Record:
			r.Verbs = append(r.Verbs, twimlRecord{
				RecordingStatusCallback:      v.StatusCallback,
				RecordingStatusCallbackEvent: v.StatusCallbackEvent,
			})
		default:
			return "", errors.New("telephony: unknown verb")
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
