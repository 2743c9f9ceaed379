package callflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"testing/fstest"

	"office-forwarding/internal/assets"
	"office-forwarding/internal/auth"
	"office-forwarding/internal/prompts"
	"office-forwarding/internal/routing"
	"office-forwarding/internal/telephony"
	"office-forwarding/pkg/logger"
)

const officeJSON = `{
  "+15550100": {"destination": "+15551234567", "officeName": "North Office"},
  "+15550200": {"destination": "+15557770000", "officeName": "South & East"}
}`

func testForwarder(fsys fstest.MapFS) *Forwarder {
	return &Forwarder{
		Router:        routing.NewAssetEngine(assets.NewDirStore(fsys), "/office_data.json"),
		Prompts:       prompts.Default(),
		WhisperURL:    "https://prompts.example.com/whisper",
		VoicemailPath: "/voicemail",
	}
}

func officeFS() fstest.MapFS {
	return fstest.MapFS{"office_data.json": {Data: []byte(officeJSON)}}
}

// onlySayHangup asserts res is exactly one Say with text followed by Hangup.
func onlySayHangup(t *testing.T, res telephony.Response, text string) {
	t.Helper()
	if len(res.Verbs) != 2 {
		t.Fatalf("expected say+hangup, got %+v", res.Verbs)
	}
	say, ok := res.Verbs[0].(telephony.Say)
	if !ok || say.Text != text || say.Voice != prompts.DefaultVoice {
		t.Fatalf("unexpected first verb %+v", res.Verbs[0])
	}
	if _, ok := res.Verbs[1].(telephony.Hangup); !ok {
		t.Fatalf("expected hangup, got %+v", res.Verbs[1])
	}
	if len(res.Dials()) != 0 {
		t.Fatalf("expected no dial")
	}
	if _, err := telephony.RenderTwiML(res); err != nil {
		t.Fatalf("document does not render: %v", err)
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestForwarder_HappyPath(t *testing.T) {
	f := testForwarder(officeFS())
	res := f.Handle(context.Background(), telephony.ForwardRequest{CalledNumber: "+15550100", Caller: "+15557654321"})

	dials := res.Dials()
	if len(dials) != 1 || len(res.Verbs) != 1 {
		t.Fatalf("expected a single dial, got %+v", res.Verbs)
	}
	d := dials[0]
	if d.CallerID != "+15557654321" {
		t.Fatalf("caller id not preserved: %q", d.CallerID)
	}
	if d.Record != telephony.RecordFromAnswerDual {
		t.Fatalf("unexpected record mode %q", d.Record)
	}
	if d.Action != "/voicemail?smsTarget=%2B15551234567" {
		t.Fatalf("unexpected action %q", d.Action)
	}
	if len(d.Numbers) != 1 || d.Numbers[0].Number != "+15551234567" {
		t.Fatalf("unexpected numbers %+v", d.Numbers)
	}
	if d.Numbers[0].URL != "https://prompts.example.com/whisper?officeName=North%20Office" {
		t.Fatalf("unexpected whisper url %q", d.Numbers[0].URL)
	}
}

// logLines runs fn with a debug JSON logger in ctx and returns its lines.
func logLines(t *testing.T, fn func(ctx context.Context)) []map[string]any {
	t.Helper()
	var buf bytes.Buffer
	fn(logger.With(context.Background(), logger.NewWithWriter(&buf, "local")))

	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var line map[string]any
		if err := json.Unmarshal(raw, &line); err != nil {
			t.Fatalf("bad log line %q: %v", raw, err)
		}
		lines = append(lines, line)
	}
	return lines
}

func TestForwarder_LogsCallSidAndTableSize(t *testing.T) {
	f := testForwarder(officeFS())
	lines := logLines(t, func(ctx context.Context) {
		f.Handle(ctx, telephony.ForwardRequest{CallSid: "CA123", CalledNumber: "+15550100", Caller: "+15557654321"})
	})

	var loaded, forwarded bool
	for _, line := range lines {
		switch line["msg"] {
		case "routing table loaded":
			loaded = line["offices"] == float64(2)
		case "forwarding call":
			forwarded = line["call_sid"] == "CA123" && line["office"] == "North Office"
		}
	}
	if !loaded || !forwarded {
		t.Fatalf("unexpected log lines %v", lines)
	}
}

func TestVoicemail_LogsCallSid(t *testing.T) {
	v := &Voicemail{Prompts: prompts.Default(), NotifierPath: "/send-sms"}
	lines := logLines(t, func(ctx context.Context) {
		v.Handle(ctx, telephony.VoicemailRequest{CallSid: "CA456", SMSTarget: "+15551234567", DialCallStatus: "busy"})
	})
	if len(lines) == 0 || lines[len(lines)-1]["call_sid"] != "CA456" {
		t.Fatalf("expected call_sid on voicemail log, got %v", lines)
	}
}

func TestForwarder_EveryEntryRoutes(t *testing.T) {
	f := testForwarder(officeFS())
	table, err := routing.Parse("office_data.json", []byte(officeJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	for _, called := range []string{"+15550100", "+15550200"} {
		want, _ := table.Lookup(called)
		res := f.Handle(context.Background(), telephony.ForwardRequest{CalledNumber: called, Caller: "+15550001"})
		dials := res.Dials()
		if len(dials) != 1 {
			t.Fatalf("%s: expected dial", called)
		}
		d := dials[0]
		if d.Numbers[0].Number != want.Destination {
			t.Fatalf("%s: dialed %q, want %q", called, d.Numbers[0].Number, want.Destination)
		}
		if got := mustParseURL(t, d.Action).Query().Get("smsTarget"); got != want.Destination {
			t.Fatalf("%s: smsTarget %q, want %q", called, got, want.Destination)
		}
		if got := mustParseURL(t, d.Numbers[0].URL).Query().Get("officeName"); got != want.OfficeName {
			t.Fatalf("%s: officeName %q, want %q", called, got, want.OfficeName)
		}
		if d.CallerID != "+15550001" {
			t.Fatalf("%s: caller id %q", called, d.CallerID)
		}
	}
}

func TestForwarder_NoMatch(t *testing.T) {
	f := testForwarder(officeFS())
	res := f.Handle(context.Background(), telephony.ForwardRequest{CalledNumber: "+15559999999", Caller: "+15557654321"})
	onlySayHangup(t, res, prompts.Default().OutOfService)
}

func TestForwarder_AssetMissing(t *testing.T) {
	f := testForwarder(fstest.MapFS{})
	res := f.Handle(context.Background(), telephony.ForwardRequest{CalledNumber: "+15550100", Caller: "+15557654321"})
	onlySayHangup(t, res, prompts.Default().InternalError)
}

func TestForwarder_AssetMalformed(t *testing.T) {
	f := testForwarder(fstest.MapFS{"office_data.json": {Data: []byte(`{"+15550100": `)}})
	res := f.Handle(context.Background(), telephony.ForwardRequest{CalledNumber: "+15550100", Caller: "+1"})
	onlySayHangup(t, res, prompts.Default().InternalError)
}

type failingEngine struct{}

func (failingEngine) Route(context.Context, string) (routing.Decision, error) {
	return routing.Decision{}, errors.New("boom")
}

func TestForwarder_EngineErrorAndMissingConfig(t *testing.T) {
	f := &Forwarder{Router: failingEngine{}, Prompts: prompts.Default(), WhisperURL: "https://p.example", VoicemailPath: "/voicemail"}
	onlySayHangup(t, f.Handle(context.Background(), telephony.ForwardRequest{CalledNumber: "+15550100"}), prompts.Default().InternalError)

	f = &Forwarder{Prompts: prompts.Default()}
	onlySayHangup(t, f.Handle(context.Background(), telephony.ForwardRequest{CalledNumber: "+15550100"}), prompts.Default().InternalError)

	f = testForwarder(officeFS())
	f.WhisperURL = ""
	onlySayHangup(t, f.Handle(context.Background(), telephony.ForwardRequest{CalledNumber: "+15550100"}), prompts.Default().InternalError)
}

func TestForwarder_SignsVoicemailCallback(t *testing.T) {
	signer := auth.NewSigner("secret", "")
	f := testForwarder(officeFS())
	f.Signer = signer

	res := f.Handle(context.Background(), telephony.ForwardRequest{CalledNumber: "+15550100", Caller: "+15557654321"})
	q := mustParseURL(t, res.Dials()[0].Action).Query()
	if q.Get("smsTarget") != "+15551234567" {
		t.Fatalf("unexpected smsTarget %q", q.Get("smsTarget"))
	}
	if err := signer.Verify(q.Get("sig"), auth.StageVoicemail, "+15551234567"); err != nil {
		t.Fatalf("signature does not verify: %v", err)
	}
}

func TestVoicemail_RecordsAndWiresNotifier(t *testing.T) {
	v := &Voicemail{Prompts: prompts.Default(), NotifierPath: "/send-sms"}
	res := v.Handle(context.Background(), telephony.VoicemailRequest{SMSTarget: "+15551234567", DialCallStatus: "no-answer"})

	if len(res.Verbs) != 3 {
		t.Fatalf("expected say, record, hangup; got %+v", res.Verbs)
	}
	say, ok := res.Verbs[0].(telephony.Say)
	if !ok || say.Text != prompts.Default().VoicemailGreeting {
		t.Fatalf("unexpected greeting %+v", res.Verbs[0])
	}
	rec, ok := res.Verbs[1].(telephony.Record)
	if !ok {
		t.Fatalf("expected record, got %+v", res.Verbs[1])
	}
	if rec.StatusCallback != "/send-sms?smsTarget=%2B15551234567" || rec.StatusCallbackEvent != "completed" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, ok := res.Verbs[2].(telephony.Hangup); !ok {
		t.Fatalf("expected trailing hangup")
	}
}

func TestVoicemail_RenderingIsIdempotent(t *testing.T) {
	v := &Voicemail{Prompts: prompts.Default(), NotifierPath: "/send-sms", Signer: auth.NewSigner("secret", "")}
	req := telephony.VoicemailRequest{SMSTarget: "+15551234567"}

	a, err := telephony.RenderTwiML(v.Handle(context.Background(), req))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := telephony.RenderTwiML(v.Handle(context.Background(), req))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if a != b {
		t.Fatalf("expected byte-identical documents:\n%s\n%s", a, b)
	}
}

func TestVoicemail_PropagatesSignedTarget(t *testing.T) {
	signer := auth.NewSigner("secret", "")
	v := &Voicemail{Prompts: prompts.Default(), NotifierPath: "/send-sms", Signer: signer}
	res := v.Handle(context.Background(), telephony.VoicemailRequest{SMSTarget: "+15551234567"})

	rec := res.Verbs[1].(telephony.Record)
	q := mustParseURL(t, rec.StatusCallback).Query()
	if q.Get("smsTarget") != "+15551234567" {
		t.Fatalf("unexpected smsTarget %q", q.Get("smsTarget"))
	}
	if err := signer.Verify(q.Get("sig"), auth.StageNotifier, "+15551234567"); err != nil {
		t.Fatalf("notifier signature does not verify: %v", err)
	}
}

func TestVoicemail_AnsweredCallJustHangsUp(t *testing.T) {
	v := &Voicemail{Prompts: prompts.Default(), NotifierPath: "/send-sms"}
	res := v.Handle(context.Background(), telephony.VoicemailRequest{SMSTarget: "+15551234567", DialCallStatus: "completed"})
	if len(res.Verbs) != 1 {
		t.Fatalf("expected hangup only, got %+v", res.Verbs)
	}
	if _, ok := res.Verbs[0].(telephony.Hangup); !ok {
		t.Fatalf("expected hangup, got %+v", res.Verbs[0])
	}
}

func TestVoicemail_MissingTarget(t *testing.T) {
	v := &Voicemail{Prompts: prompts.Default(), NotifierPath: "/send-sms"}
	onlySayHangup(t, v.Handle(context.Background(), telephony.VoicemailRequest{}), prompts.Default().InternalError)
}
