package httpapi

import (
	"net/http"

	"office-forwarding/internal/callflow"
	"office-forwarding/internal/prompts"
	"office-forwarding/internal/telephony"
	"office-forwarding/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers binds the call-flow stages to provider webhooks.
// Keep these thin: parse input, call the stage, write the response.
type Handlers struct {
	Forwarder *callflow.Forwarder
	Voicemail *callflow.Voicemail
	Notifier  *callflow.Notifier
	Prompts   prompts.Catalog
}

// Forward answers the entry webhook with a bridge or a spoken refusal.
func (h Handlers) Forward(c *gin.Context) {
	fallback := callflow.InternalError(h.Prompts)
	req, err := telephony.ParseForwardRequest(c.Request)
	if err != nil || h.Forwarder == nil {
		logger.FromGin(c).Error("forwarder request rejected", "err", err)
		telephony.WriteTwiML(c, fallback, fallback)
		return
	}
	telephony.WriteTwiML(c, h.Forwarder.Handle(c.Request.Context(), req), fallback)
}

// Fallback answers the bridge's fallback action with the voicemail stage.
func (h Handlers) Fallback(c *gin.Context) {
	fallback := callflow.InternalError(h.Prompts)
	req, err := telephony.ParseVoicemailRequest(c.Request)
	if err != nil || h.Voicemail == nil {
		logger.FromGin(c).Error("voicemail request rejected", "err", err)
		telephony.WriteTwiML(c, fallback, fallback)
		return
	}
	telephony.WriteTwiML(c, h.Voicemail.Handle(c.Request.Context(), req), fallback)
}

// Notify handles the recording status callback. It always acknowledges:
// a non-2xx answer would make the provider redeliver and text the office twice.
func (h Handlers) Notify(c *gin.Context) {
	cb, err := telephony.ParseRecordingCallback(c.Request)
	switch {
	case err != nil:
		logger.FromGin(c).Error("recording callback unreadable", "err", err)
	case h.Notifier == nil:
		logger.FromGin(c).Error("notifier not configured")
	default:
		h.Notifier.Handle(c.Request.Context(), cb)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Throttled answers an over-budget voice webhook with the internal-error
// document.
func (h Handlers) Throttled(c *gin.Context) {
	fallback := callflow.InternalError(h.Prompts)
	telephony.WriteTwiML(c, fallback, fallback)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
