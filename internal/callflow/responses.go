package callflow

import (
	"office-forwarding/internal/prompts"
	"office-forwarding/internal/telephony"
)

// InternalError is the document returned whenever a handler cannot continue.
// The HTTP layer also uses it as the render fallback.
func InternalError(p prompts.Catalog) telephony.Response {
	var res telephony.Response
	res.Say(p.Voice, p.InternalError).Hangup()
	return res
}

func outOfService(p prompts.Catalog) telephony.Response {
	var res telephony.Response
	res.Say(p.Voice, p.OutOfService).Hangup()
	return res
}
