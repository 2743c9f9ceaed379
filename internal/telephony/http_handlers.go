package telephony

import (
	"net/http"
	"strings"

	"office-forwarding/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
)

const headerTwilioSignature = "X-Twilio-Signature"

// RequireTwilioSignature rejects webhook requests whose X-Twilio-Signature does
// not match the auth token. publicBaseURL is the externally visible scheme+host
// the provider used to reach us (TLS is usually terminated in front of the service).
func RequireTwilioSignature(authToken, publicBaseURL string) gin.HandlerFunc {
	rv := client.NewRequestValidator(authToken)
	base := strings.TrimRight(publicBaseURL, "/")

	return func(c *gin.Context) {
		log := logger.FromGin(c)

		sig := c.GetHeader(headerTwilioSignature)
		if sig == "" {
			log.Warn("twilio signature missing", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing signature"})
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
			return
		}

		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		if !rv.Validate(base+c.Request.URL.RequestURI(), params, sig) {
			log.Warn("twilio signature invalid", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}

// WriteTwiML renders res and writes it. If rendering fails the fallback
// document is written instead so the provider always receives valid TwiML.
func WriteTwiML(c *gin.Context, res Response, fallback Response) {
	log := logger.FromGin(c)

	twiml, err := RenderTwiML(res)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		twiml, err = RenderTwiML(fallback)
		if err != nil {
			log.Error("fallback twiml render failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
			return
		}
	}

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
