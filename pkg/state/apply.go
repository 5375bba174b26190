package state

import (
	"context"
	"fmt"

	geoman "github.com/goliatone/go-geoman"
)

// Apply resolves preset for the map pm is attached to, optionally layered
// with more specific scopes, and commits the merged result through
// SetGlobalOptions. Fan-out failures are returned as reported by
// SetGlobalOptions; the options are committed regardless.
func Apply(ctx context.Context, pm *geoman.PM, resolver Resolver[geoman.GlobalOptions], preset string, scopes ...geoman.Scope) (*geoman.Stack[geoman.GlobalOptions], error) {
	if pm == nil {
		return nil, fmt.Errorf("state: map instance is required")
	}
	all := append([]geoman.Scope{MapScope(pm.MapID())}, scopes...)
	stack, err := resolver.Resolve(ctx, preset, all...)
	if err != nil {
		return nil, err
	}
	return stack, pm.SetGlobalOptions(ctx, stack.Merge())
}
