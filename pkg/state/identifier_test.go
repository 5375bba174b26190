package state_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	geoman "github.com/goliatone/go-geoman"
	"github.com/goliatone/go-geoman/pkg/state"
)

type identifierFixture struct {
	Description string           `json:"description"`
	Cases       []identifierCase `json:"cases"`
}

type identifierCase struct {
	Name string `json:"name"`
	Ref  struct {
		Preset string       `json:"preset"`
		Scope  geoman.Scope `json:"scope"`
	} `json:"ref"`
	Expect struct {
		Value string `json:"value"`
		Error string `json:"error"`
	} `json:"expect"`
}

func TestRefIdentifierFromFixtures(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "testdata", "state_identifiers.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var fx identifierFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			ref := state.Ref{Preset: tc.Ref.Preset, Scope: tc.Ref.Scope}
			got, err := ref.Identifier()
			if tc.Expect.Error != "" {
				if err == nil || !strings.Contains(err.Error(), tc.Expect.Error) {
					t.Fatalf("expected error containing %q, got %v", tc.Expect.Error, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.Expect.Value {
				t.Fatalf("want %q, got %q", tc.Expect.Value, got)
			}
		})
	}
}

func TestScopeHelpersProduceValidRefs(t *testing.T) {
	for _, scope := range []geoman.Scope{state.MapScope("m"), state.ShapeScope(geoman.Circle), state.LayerScope("l")} {
		if _, err := (state.Ref{Preset: "p", Scope: scope}).Identifier(); err != nil {
			t.Fatalf("scope %s: %v", scope.Name(), err)
		}
	}
}
