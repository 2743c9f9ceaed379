package callflow

import (
	"context"
	"time"

	"office-forwarding/internal/metrics"
	"office-forwarding/internal/prompts"
	"office-forwarding/internal/telephony"
	"office-forwarding/pkg/logger"
)

// Sender dispatches one SMS. Implementations must not retry.
type Sender interface {
	Name() string
	SendSMS(ctx context.Context, msg telephony.SMS) (string, error)
}

// Guard claims a key once. A false claim means the key was already taken.
type Guard interface {
	Claim(ctx context.Context, key string) (bool, error)
}

// Notifier texts the office after a voicemail recording completes.
type Notifier struct {
	Sender  Sender
	Prompts prompts.Catalog

	// Guard is optional. When set, repeated callbacks for the same recording
	// send nothing.
	Guard Guard
}

// Handle makes at most one send attempt and returns the outcome, one of the
// metrics.SMS* values. Failures are logged and never returned: the webhook
// is acknowledged either way.
func (n *Notifier) Handle(ctx context.Context, cb telephony.RecordingCallback) string {
	log := logger.From(ctx).With("call_sid", cb.CallSid, "sms_target", cb.SMSTarget, "recording_sid", cb.RecordingSid)
	provider := "none"
	if n.Sender != nil {
		provider = n.Sender.Name()
	}

	if cb.SMSTarget == "" || cb.RecordingURL == "" {
		log.Warn("recording callback incomplete, no sms sent",
			"has_target", cb.SMSTarget != "",
			"has_recording", cb.RecordingURL != "",
		)
		metrics.ObserveSMS(provider, metrics.SMSSkipped)
		return metrics.SMSSkipped
	}
	if n.Sender == nil {
		log.Error("notifier has no sms sender")
		metrics.ObserveSMS(provider, metrics.SMSFailed)
		return metrics.SMSFailed
	}

	if n.Guard != nil {
		key := cb.RecordingSid
		if key == "" {
			key = cb.RecordingURL
		}
		first, err := n.Guard.Claim(ctx, key)
		switch {
		case err != nil:
			log.Warn("delivery guard unavailable, sending anyway", "err", err)
		case !first:
			log.Info("duplicate recording callback, sms already sent")
			metrics.ObserveSMS(provider, metrics.SMSDuplicate)
			return metrics.SMSDuplicate
		}
	}

	msg := telephony.SMS{
		To:   cb.SMSTarget,
		From: cb.To,
		Body: n.Prompts.VoicemailNotice(cb.CallFrom, cb.RecordingURL),
	}

	start := time.Now()
	sid, err := n.Sender.SendSMS(ctx, msg)
	metrics.ObserveSMSDuration(provider, time.Since(start).Seconds())
	if err != nil {
		log.Error("voicemail sms failed", "provider", provider, "err", err)
		metrics.ObserveSMS(provider, metrics.SMSFailed)
		return metrics.SMSFailed
	}

	log.Info("voicemail sms sent", "provider", provider, "message_sid", sid, "from", cb.To)
	metrics.ObserveSMS(provider, metrics.SMSSent)
	return metrics.SMSSent
}
