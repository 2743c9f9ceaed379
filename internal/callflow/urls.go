package callflow

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"office-forwarding/internal/telephony"
)

// queryComponent percent-encodes s for use as a query value. Spaces become
// %20 rather than "+", which some prompt hosts do not decode.
func queryComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// callbackURL threads the SMS target (and its signature, when signing is on)
// through a provider callback path such as "/voicemail".
func callbackURL(path, smsTarget, sig string) string {
	var b strings.Builder
	b.WriteString(path)
	if strings.Contains(path, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString(telephony.ParamSMSTarget)
	b.WriteByte('=')
	b.WriteString(queryComponent(smsTarget))
	if sig != "" {
		b.WriteByte('&')
		b.WriteString(telephony.ParamSignature)
		b.WriteByte('=')
		b.WriteString(queryComponent(sig))
	}
	return b.String()
}

// whisperURL appends officeName to the prompt endpoint, keeping any query
// parameters already present on it.
func whisperURL(base, officeName string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", errors.New("callflow: whisper prompt url not configured")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("callflow: whisper prompt url: %w", err)
	}
	q := "officeName=" + queryComponent(officeName)
	if u.RawQuery != "" {
		u.RawQuery += "&" + q
	} else {
		u.RawQuery = q
	}
	return u.String(), nil
}
