package auth

import (
	"net/http"

	"office-forwarding/internal/telephony"
	"office-forwarding/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireSignedTarget verifies the signature query parameter against the SMS
// target for the given stage. The target is normalized the way the stage
// handlers read it, so an unescaped "+" still matches what was signed.
// It is a no-op when the signer is disabled.
func RequireSignedTarget(s *Signer, stage Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Enabled() {
			c.Next()
			return
		}

		q := c.Request.URL.Query()
		target := telephony.NormalizePhone(q.Get(telephony.ParamSMSTarget))
		if err := s.Verify(q.Get(telephony.ParamSignature), stage, target); err != nil {
			logger.FromGin(c).Warn("callback signature rejected", "stage", string(stage), "err", err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid callback signature"})
			return
		}
		c.Next()
	}
}
