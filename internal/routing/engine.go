package routing

import (
	"context"
	"errors"
	"fmt"

	"office-forwarding/internal/assets"
	"office-forwarding/pkg/logger"
)

// Engine decides where an inbound call goes.
//
// An error means the table itself was unavailable or malformed; an unknown
// number is a Decision with ActionNoMatch, never an error.
type Engine interface {
	Route(ctx context.Context, calledNumber string) (Decision, error)
}

// Load fetches and parses the routing asset at path.
func Load(ctx context.Context, store assets.Store, path string) (*Table, error) {
	if store == nil {
		return nil, errors.New("routing: asset store not configured")
	}
	data, err := store.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("routing: load %s: %w", path, err)
	}
	return Parse(path, data)
}

// AssetEngine reloads the table from the asset store on every call.
// Nothing is cached between invocations.
type AssetEngine struct {
	Store assets.Store
	Path  string
}

func NewAssetEngine(store assets.Store, path string) *AssetEngine {
	return &AssetEngine{Store: store, Path: path}
}

func (e *AssetEngine) Route(ctx context.Context, calledNumber string) (Decision, error) {
	t, err := Load(ctx, e.Store, e.Path)
	if err != nil {
		return Decision{}, err
	}
	logger.From(ctx).Debug("routing table loaded", "path", e.Path, "offices", t.Len())

	d := Decision{CalledNumber: calledNumber, Action: ActionNoMatch}
	if o, ok := t.Lookup(calledNumber); ok {
		d.Action = ActionConnect
		d.Office = o
	}
	return d, nil
}
