package auth

import "github.com/golang-jwt/jwt/v5"

// Stage names the callback a signed token is valid for.
type Stage string

const (
	StageVoicemail Stage = "voicemail"
	StageNotifier  Stage = "notifier"
)

// CallbackClaims bind an SMS target to one callback stage.
//
// No iat/exp/jti: the same target must always produce the same token so the
// rendered voice documents stay byte-identical across retries.
type CallbackClaims struct {
	jwt.RegisteredClaims

	SMSTarget string `json:"sms_target"`
}
