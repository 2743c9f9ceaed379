package routing

// Decision is the outcome of routing one inbound call.
//
// It carries only what the call flow needs to build the voice response;
// nothing provider-specific belongs here.
type Decision struct {
	CalledNumber string `json:"called_number"`

	Action Action `json:"action"`

	// Office is set when Action == ActionConnect.
	Office OfficeRecord `json:"office"`
}

type Action string

const (
	ActionConnect Action = "connect"
	// ActionNoMatch means the number is not in the table. Not an error.
	ActionNoMatch Action = "no_match"
)
