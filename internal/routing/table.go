package routing

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrMalformed is returned when the routing asset cannot be parsed into a table.
var ErrMalformed = errors.New("routing: malformed routing table")

// OfficeRecord is one row of the routing table. Immutable once parsed.
type OfficeRecord struct {
	// Destination is the office number (E.164) the call is bridged to.
	Destination string `json:"destination" yaml:"destination"`
	OfficeName  string `json:"officeName" yaml:"officeName"`
}

// Table maps an inbound provider number (E.164) to its office.
// Lookups are exact string matches; keys are not normalized.
type Table struct {
	offices map[string]OfficeRecord
}

// Parse decodes a routing document. Assets named *.yaml or *.yml are read as
// YAML, everything else as JSON. Both have the shape
//
//	{"+15550100": {"destination": "+15551234567", "officeName": "North Office"}}
func Parse(name string, data []byte) (*Table, error) {
	var raw map[string]OfficeRecord

	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: document is empty", ErrMalformed)
	}

	for k, v := range raw {
		if strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: empty inbound number", ErrMalformed)
		}
		if strings.TrimSpace(v.Destination) == "" {
			return nil, fmt.Errorf("%w: %s has no destination", ErrMalformed, k)
		}
	}
	return &Table{offices: raw}, nil
}

// Lookup returns the office for calledNumber.
func (t *Table) Lookup(calledNumber string) (OfficeRecord, bool) {
	if t == nil {
		return OfficeRecord{}, false
	}
	o, ok := t.offices[calledNumber]
	return o, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.offices)
}
