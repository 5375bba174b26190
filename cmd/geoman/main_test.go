package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-prefix", "GEOMAN_CLI_TEST_"))
	err := cmd.Execute()
	return out.String(), err
}

func TestOptionsCommandPrintsEffectiveOptions(t *testing.T) {
	out, err := execute(t, "options", "--config", filepath.Join("testdata", "geoman.yaml"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 15.0, decoded["snapDistance"])
	assert.Equal(t, true, decoded["snappable"])
	panes := decoded["panes"].(map[string]any)
	assert.Equal(t, "overlayPane", panes["vertexPane"])
	assert.Equal(t, "markerPane", panes["markerPane"])
}

func TestOptionsCommandHonoursEnvironment(t *testing.T) {
	t.Setenv("GEOMAN_CLI_TEST_OPTIONS__SNAPPABLE", "false")
	out, err := execute(t, "lookup", "snappable", "--config", filepath.Join("testdata", "geoman.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestLookupUnsetPath(t *testing.T) {
	_, err := execute(t, "lookup", "pathOptions.color")
	assert.Error(t, err)
}

func TestReplaySession(t *testing.T) {
	out, err := execute(t, "replay", filepath.Join("testdata", "session.yaml"), "--config", filepath.Join("testdata", "geoman.yaml"))
	require.NoError(t, err, out)

	for _, line := range []string{
		"step 1 enableDraw\n",
		"  event pm:globaldrawmodetoggled enabled=true shape=Polygon\n",
		"  event pm:create container=demo shape=Polygon\n",
		"  event pm:globaloptionsupdated failures=0\n",
		"  snappingOrder.0 = Polygon\n",
		"  matched [line-1]\n",
		"  event pm:globaleditmodetoggled enabled=true\n",
		"  event pm:globaleditmodetoggled enabled=false\n",
		"  removed true\n",
		"  event pm:remove container=demo shape=Marker\n",
		"  event pm:globalremovalmodetoggled enabled=false\n",
		"  event pm:langchange activeLang=de fallback=en oldLang=en\n",
		"  event pm:globalcutmodetoggled enabled=true\n",
		"mode cut\n",
	} {
		assert.Contains(t, out, line)
	}
}

func TestReplayExportsGeoJSON(t *testing.T) {
	out, err := execute(t, "replay", filepath.Join("testdata", "session.yaml"), "--geojson", "--config", filepath.Join("testdata", "geoman.yaml"))
	require.NoError(t, err, out)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1, "only the drawn polygon has vertices")
	assert.Equal(t, "Polygon", fc.Features[0].Geometry.Type)
	assert.Equal(t, "Polygon", fc.Features[0].Properties["shape"])
}

func TestReplayFailsOnUnexpectedMode(t *testing.T) {
	_, err := execute(t, "replay", filepath.Join("testdata", "bad_expect.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected mode edit, got draw:Line")
}

func TestFormatMetadataSkipsNonScalars(t *testing.T) {
	got := formatMetadata(map[string]any{"b": true, "a": "x", "list": []string{"k"}, "n": 2})
	assert.Equal(t, " a=x b=true n=2", got)
}
