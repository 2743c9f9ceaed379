package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// twilioSign computes X-Twilio-Signature: base64(HMAC-SHA1(token, url + sorted key/value pairs)).
func twilioSign(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signedRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/send-sms", RequireTwilioSignature(token, "https://calls.example.com/"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return r
}

func TestRequireTwilioSignature_AcceptsValidSignature(t *testing.T) {
	form := url.Values{"To": {"+15550100"}, "RecordingUrl": {"https://example/rec/abc"}}
	sig := twilioSign("token", "https://calls.example.com/send-sms?smsTarget=%2B15551234567", form)

	req := httptest.NewRequest(http.MethodPost, "/send-sms?smsTarget=%2B15551234567", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(headerTwilioSignature, sig)
	w := httptest.NewRecorder()

	signedRouter("token").ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireTwilioSignature_RejectsTamperedParams(t *testing.T) {
	form := url.Values{"To": {"+15550100"}}
	sig := twilioSign("token", "https://calls.example.com/send-sms?smsTarget=%2B15551234567", form)

	req := httptest.NewRequest(http.MethodPost, "/send-sms?smsTarget=%2B19990000000", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(headerTwilioSignature, sig)
	w := httptest.NewRecorder()

	signedRouter("token").ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireTwilioSignature_RejectsMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/send-sms", nil)
	w := httptest.NewRecorder()

	signedRouter("token").ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestWriteTwiML_FallsBackOnRenderError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/forwarder", nil)

	var bad Response
	bad.Dial(Dial{})
	var fallback Response
	fallback.Say("v", "internal error").Hangup()

	WriteTwiML(c, bad, fallback)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal error") || !strings.Contains(w.Body.String(), "<Hangup") {
		t.Fatalf("expected fallback document, got %s", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("unexpected content type %q", ct)
	}
}
