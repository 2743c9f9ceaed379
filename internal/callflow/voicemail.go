package callflow

import (
	"context"

	"office-forwarding/internal/auth"
	"office-forwarding/internal/calls"
	"office-forwarding/internal/metrics"
	"office-forwarding/internal/prompts"
	"office-forwarding/internal/telephony"
	"office-forwarding/pkg/logger"
)

// Voicemail is the bridge's fallback action.
type Voicemail struct {
	Prompts      prompts.Catalog
	NotifierPath string
	Signer       *auth.Signer
}

// Handle renders greeting, record and hangup. The output depends only on
// the SMS target, so a retried callback gets a byte-identical document.
func (v *Voicemail) Handle(ctx context.Context, req telephony.VoicemailRequest) telephony.Response {
	log := logger.From(ctx).With("call_sid", req.CallSid, "sms_target", req.SMSTarget)

	status := calls.ParseDialStatus(req.DialCallStatus)
	if status.Connected() {
		log.Debug("bridge completed, no voicemail")
		metrics.ObserveVoicemail("answered")
		var res telephony.Response
		res.Hangup()
		return res
	}

	if req.SMSTarget == "" {
		log.Error("voicemail reached without sms target")
		metrics.ObserveVoicemail("missing_target")
		return InternalError(v.Prompts)
	}

	sig, err := v.Signer.Sign(auth.StageNotifier, req.SMSTarget)
	if err != nil {
		log.Error("sign notifier callback", "err", err)
		metrics.ObserveVoicemail("sign_error")
		return InternalError(v.Prompts)
	}

	var res telephony.Response
	res.Say(v.Prompts.Voice, v.Prompts.VoicemailGreeting).
		Record(telephony.Record{
			StatusCallback:      callbackURL(v.NotifierPath, req.SMSTarget, sig),
			StatusCallbackEvent: telephony.RecordingEventCompleted,
		}).
		Hangup()

	log.Info("recording voicemail", "dial_status", string(status), "missed", status.Missed())
	metrics.ObserveVoicemail("record")
	return res
}
