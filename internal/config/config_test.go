package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recordlinkage "github.com/baditaflorin/go_record_linkage"
	"github.com/baditaflorin/go_record_linkage/internal/adapters/normalizer"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linkage.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validManifest = `
[input]
kind = "sqlite"
path = "records.db"
table = "people"
id_column = "person_id"
field_columns = ["first", "last", "city"]
array_columns = ["aliases"]

[output]
table = "people_clusters"
edges_path = "edges.json"

[engine]
match_threshold = 0.95
seed = 42

[[blocking_rules]]
name = "by-last"
attributes = ["last"]

[[training_rules]]
name = "train-city"
attributes = ["city"]

[[comparisons]]
name = "first-fuzzy"
attribute = "first"
kind = "string-similarity"
cutoffs = [1.0, 0.88]

[[comparisons]]
name = "last-exact"
attribute = "last"
kind = "exact"

[[comparisons]]
name = "alias-overlap"
attribute = "aliases"
kind = "array-intersection"
sizes = [2, 1]
`

func TestLoadValidManifest(t *testing.T) {
	cfg, err := Load(writeManifest(t, validManifest))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Input.Kind)
	assert.Equal(t, "person_id", cfg.Input.IDColumn)
	assert.Equal(t, "people_clusters", cfg.Output.Table)
	assert.Equal(t, 0.95, cfg.Engine.MatchThreshold)
	assert.Equal(t, int64(42), cfg.Engine.Seed)
	// Unset tunables keep the engine defaults.
	assert.Equal(t, recordlinkage.DefaultEMMaxIterations, cfg.Engine.EMMaxIterations)
	assert.Equal(t, recordlinkage.DefaultMaxGroupSize, cfg.Engine.MaxGroupSize)
	assert.Len(t, cfg.BlockingRules, 1)
	assert.Len(t, cfg.Comparisons, 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadRejectsBadManifests(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{
			name:     "unknown input kind",
			manifest: `[input]` + "\n" + `kind = "postgres"` + "\n" + `path = "x"`,
			wantErr:  "input.kind",
		},
		{
			name: "unknown normalizer",
			manifest: `
[input]
kind = "csv"
path = "records.csv"
field_columns = ["last"]
normalize = "soundex"

[[blocking_rules]]
name = "by-last"
attributes = ["last"]

[[comparisons]]
name = "last-exact"
attribute = "last"
kind = "exact"
`,
			wantErr: "input.normalize",
		},
		{
			name: "no blocking rules",
			manifest: `
[input]
kind = "csv"
path = "records.csv"
field_columns = ["last"]

[[comparisons]]
name = "last-exact"
attribute = "last"
kind = "exact"
`,
			wantErr: "blocking_rules",
		},
		{
			name: "string similarity without cutoffs",
			manifest: `
[input]
kind = "csv"
path = "records.csv"
field_columns = ["last"]

[[blocking_rules]]
name = "by-last"
attributes = ["last"]

[[comparisons]]
name = "last-fuzzy"
attribute = "last"
kind = "string-similarity"
`,
			wantErr: "cutoffs",
		},
		{
			name: "rule without attributes",
			manifest: `
[input]
kind = "csv"
path = "records.csv"
field_columns = ["last"]

[[blocking_rules]]
name = "by-last"

[[comparisons]]
name = "last-exact"
attribute = "last"
kind = "exact"
`,
			wantErr: "attributes",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, tc.manifest))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

const normalizedManifest = `
[input]
kind = "csv"
path = "people.csv"
field_columns = ["first", "last"]
normalize = "name"

[engine]
match_threshold = 0.9
seed = 7

[[blocking_rules]]
name = "by-last"
attributes = ["last"]

[[training_rules]]
name = "train-last"
attributes = ["last"]

[[comparisons]]
name = "first-exact"
attribute = "first"
kind = "exact"

[[comparisons]]
name = "last-exact"
attribute = "last"
kind = "exact"
`

func accentedPeople() []recordlinkage.Record {
	return []recordlinkage.Record{
		{ID: "1", Fields: map[string]string{"first": "Ana", "last": "Núñez"}},
		{ID: "2", Fields: map[string]string{"first": "ana", "last": "Nunez"}},
		{ID: "3", Fields: map[string]string{"first": "Luis", "last": "García"}},
	}
}

func TestManifestNormalizerClustersAccentedVariants(t *testing.T) {
	cfg, err := Load(writeManifest(t, normalizedManifest))
	require.NoError(t, err)
	require.NotNil(t, cfg.Normalizer())

	engine, err := recordlinkage.New(cfg.EngineOptions()...)
	require.NoError(t, err)

	// Without normalization "Núñez" and "Nunez" land in different blocking
	// groups and are never even compared.
	raw, err := engine.Dedupe(context.Background(), accentedPeople())
	require.NoError(t, err)
	assert.NotEqual(t, raw.Assignments["1"], raw.Assignments["2"])

	records := accentedPeople()
	normalizer.Apply(cfg.Normalizer(), records)
	res, err := engine.Dedupe(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, res.Assignments["1"], res.Assignments["2"],
		"accented and plain variants should share a cluster once normalized")
	assert.Equal(t, "3", res.Assignments["3"])
}

func TestEngineOptionsBuildWorkingEngine(t *testing.T) {
	cfg, err := Load(writeManifest(t, validManifest))
	require.NoError(t, err)

	// The translated options must satisfy the engine's own validation.
	engine, err := recordlinkage.New(cfg.EngineOptions()...)
	require.NoError(t, err)
	require.NotNil(t, engine)
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := Load(writeManifest(t, `
[input]
kind = "csv"
path = "records.csv"
field_columns = ["last"]

[[blocking_rules]]
name = "by-last"
attributes = ["last"]

[[comparisons]]
name = "last-exact"
attribute = "last"
kind = "exact"
`))
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.Input.IDColumn)
	assert.Equal(t, " ", cfg.Input.ArraySeparator)
	assert.Equal(t, "none", cfg.Input.Normalize)
	assert.Nil(t, cfg.Normalizer())
	assert.Equal(t, "clusters", cfg.Output.Table)
	assert.Equal(t, recordlinkage.DefaultMatchThreshold, cfg.Engine.MatchThreshold)
	assert.Equal(t, int64(recordlinkage.DefaultSeed), cfg.Engine.Seed)
}
