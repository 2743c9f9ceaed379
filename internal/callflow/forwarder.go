// Package callflow implements the three webhook stages of an office call:
// Forwarder bridges the caller to the office, Voicemail records a message
// when the bridge fails, and Notifier texts the office a link to it.
//
// Stages share no memory. The office number travels between them as the
// smsTarget parameter of the callback URLs each stage emits.
package callflow

import (
	"context"

	"office-forwarding/internal/auth"
	"office-forwarding/internal/metrics"
	"office-forwarding/internal/prompts"
	"office-forwarding/internal/routing"
	"office-forwarding/internal/telephony"
	"office-forwarding/pkg/logger"
)

// Forwarder is the entry stage.
type Forwarder struct {
	Router  routing.Engine
	Prompts prompts.Catalog

	// WhisperURL is the prompt endpoint played to the answering office.
	// It receives the office name as the officeName query parameter.
	WhisperURL string

	// VoicemailPath is the bridge's fallback action.
	VoicemailPath string

	// Signer is optional; nil disables callback signatures.
	Signer *auth.Signer
}

// Handle always returns a well-formed document: a bridge on a match,
// out-of-service on no match, internal-error on any failure.
func (f *Forwarder) Handle(ctx context.Context, req telephony.ForwardRequest) telephony.Response {
	log := logger.From(ctx).With("call_sid", req.CallSid, "called_number", req.CalledNumber, "caller", req.Caller)

	if f.Router == nil {
		log.Error("forwarder has no routing engine")
		metrics.ObserveForward(metrics.ForwardAssetError)
		return InternalError(f.Prompts)
	}

	d, err := f.Router.Route(ctx, req.CalledNumber)
	if err != nil {
		log.Error("routing table unavailable", "err", err)
		metrics.ObserveForward(metrics.ForwardAssetError)
		return InternalError(f.Prompts)
	}

	if d.Action != routing.ActionConnect {
		log.Warn("no office for called number")
		metrics.ObserveForward(metrics.ForwardNoMatch)
		return outOfService(f.Prompts)
	}

	office := d.Office
	whisper, err := whisperURL(f.WhisperURL, office.OfficeName)
	if err != nil {
		log.Error("whisper url", "err", err)
		metrics.ObserveForward(metrics.ForwardAssetError)
		return InternalError(f.Prompts)
	}
	sig, err := f.Signer.Sign(auth.StageVoicemail, office.Destination)
	if err != nil {
		log.Error("sign voicemail callback", "err", err)
		metrics.ObserveForward(metrics.ForwardAssetError)
		return InternalError(f.Prompts)
	}

	var res telephony.Response
	res.Dial(telephony.Dial{
		CallerID: req.Caller,
		Action:   callbackURL(f.VoicemailPath, office.Destination, sig),
		Record:   telephony.RecordFromAnswerDual,
		Numbers:  []telephony.Number{{URL: whisper, Number: office.Destination}},
	})

	log.Info("forwarding call", "office", office.OfficeName, "destination", office.Destination)
	metrics.ObserveForward(metrics.ForwardBridged)
	return res
}
