package telephony

import (
	"encoding/xml"
	"strings"
	"testing"
)

type parsedDoc struct {
	XMLName xml.Name `xml:"Response"`
	Says    []struct {
		Voice string `xml:"voice,attr"`
		Text  string `xml:",chardata"`
	} `xml:"Say"`
	Hangups []struct{} `xml:"Hangup"`
	Dials   []struct {
		CallerID string `xml:"callerId,attr"`
		Action   string `xml:"action,attr"`
		Record   string `xml:"record,attr"`
		Numbers  []struct {
			URL    string `xml:"url,attr"`
			Number string `xml:",chardata"`
		} `xml:"Number"`
	} `xml:"Dial"`
	Records []struct {
		Callback string `xml:"recordingStatusCallback,attr"`
		Event    string `xml:"recordingStatusCallbackEvent,attr"`
	} `xml:"Record"`
}

func TestRenderTwiMLSayHangup(t *testing.T) {
	var res Response
	res.Say("Google.en-US-Chirp3-HD-Kore", "We're sorry & goodbye.").Hangup()

	out, err := RenderTwiML(res)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasPrefix(out, xml.Header) {
		t.Fatalf("expected xml header: %s", out)
	}

	var doc parsedDoc
	if err := xml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("rendered document does not parse: %v\n%s", err, out)
	}
	if len(doc.Says) != 1 || len(doc.Hangups) != 1 || len(doc.Dials) != 0 {
		t.Fatalf("unexpected verbs: %+v", doc)
	}
	if doc.Says[0].Voice != "Google.en-US-Chirp3-HD-Kore" || doc.Says[0].Text != "We're sorry & goodbye." {
		t.Fatalf("unexpected say: %+v", doc.Says[0])
	}
	if strings.Index(out, "<Say") > strings.Index(out, "<Hangup") {
		t.Fatalf("expected Say before Hangup: %s", out)
	}
}

func TestRenderTwiMLDialWithWhisper(t *testing.T) {
	var res Response
	res.Dial(Dial{
		CallerID: "+15557654321",
		Action:   "/voicemail?smsTarget=%2B15551234567",
		Record:   RecordFromAnswerDual,
		Numbers:  []Number{{URL: "https://prompts.example/whisper?officeName=North%20Office", Number: "+15551234567"}},
	})

	out, err := RenderTwiML(res)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var doc parsedDoc
	if err := xml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("rendered document does not parse: %v", err)
	}
	if len(doc.Dials) != 1 {
		t.Fatalf("expected one dial: %s", out)
	}
	d := doc.Dials[0]
	if d.CallerID != "+15557654321" || d.Record != "record-from-answer-dual" {
		t.Fatalf("unexpected dial attrs: %+v", d)
	}
	if d.Action != "/voicemail?smsTarget=%2B15551234567" {
		t.Fatalf("unexpected action %q", d.Action)
	}
	if len(d.Numbers) != 1 || d.Numbers[0].Number != "+15551234567" {
		t.Fatalf("unexpected numbers: %+v", d.Numbers)
	}
	if d.Numbers[0].URL != "https://prompts.example/whisper?officeName=North%20Office" {
		t.Fatalf("unexpected whisper url %q", d.Numbers[0].URL)
	}
}

func TestRenderTwiMLRecord(t *testing.T) {
	var res Response
	res.Record(Record{StatusCallback: "/send-sms?smsTarget=%2B1555&sig=a.b.c", StatusCallbackEvent: RecordingEventCompleted}).Hangup()

	out, err := RenderTwiML(res)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var doc parsedDoc
	if err := xml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("rendered document does not parse: %v", err)
	}
	if len(doc.Records) != 1 || doc.Records[0].Callback != "/send-sms?smsTarget=%2B1555&sig=a.b.c" || doc.Records[0].Event != "completed" {
		t.Fatalf("unexpected record: %+v", doc.Records)
	}
}

func TestRenderTwiMLDialRequiresNumber(t *testing.T) {
	var res Response
	res.Dial(Dial{CallerID: "+1"})
	if _, err := RenderTwiML(res); err == nil {
		t.Fatalf("expected error")
	}

	res = Response{}
	res.Dial(Dial{Numbers: []Number{{Number: "  "}}})
	if _, err := RenderTwiML(res); err == nil {
		t.Fatalf("expected error for empty number")
	}
}

func TestRenderTwiMLIsDeterministic(t *testing.T) {
	build := func() Response {
		var res Response
		res.Say("v", "hello").Record(Record{StatusCallback: "/n?x=1", StatusCallbackEvent: "completed"}).Hangup()
		return res
	}
	a, err := RenderTwiML(build())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := RenderTwiML(build())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if a != b {
		t.Fatalf("expected identical output:\n%s\n%s", a, b)
	}
}
