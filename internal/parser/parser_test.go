package parser

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/yeha-adry/spacetime/internal/models"
)

const yamlConfig = `
dataset: etth
variant: "1"
model: spacetime
embedding_config: embedding/repeat
n_blocks: 3
lr: 0.001
layernorm: true
scheduler: null
num_examples: 4000
`

func TestParseYAML(t *testing.T) {
	cfg := &models.RunConfiguration{LogDir: "./logs"}
	require.NoError(t, ParseYAMLRunConfiguration(strings.NewReader(yamlConfig), cfg))

	require.Equal(t, "etth", cfg.Dataset)
	require.Equal(t, "1", *cfg.Variant)
	require.Equal(t, 3, cfg.NBlocks)
	require.Equal(t, 0.001, cfg.LR)
	require.True(t, cfg.Layernorm)
	require.Nil(t, cfg.Scheduler)
	require.Equal(t, 4000, *cfg.NumExamples)
	require.Equal(t, "./logs", cfg.LogDir)
}

func TestParseYAMLRejectsUnknownFields(t *testing.T) {
	err := ParseYAMLRunConfiguration(strings.NewReader("modle: s4\n"), &models.RunConfiguration{})
	require.ErrorContains(t, err, "failed to parse YAML run configuration")
}

func TestParseYAMLEmpty(t *testing.T) {
	require.NoError(t, ParseYAMLRunConfiguration(strings.NewReader(""), &models.RunConfiguration{}))
}

func TestParseJSON(t *testing.T) {
	cfg := &models.RunConfiguration{}
	require.NoError(t, ParseJSONRunConfiguration(strings.NewReader(`{"dataset":"m4","horizon":24,"no_wandb":true}`), cfg))
	require.Equal(t, "m4", cfg.Dataset)
	require.Equal(t, 24, cfg.Horizon)
	require.True(t, cfg.NoWandb)

	err := ParseJSONRunConfiguration(strings.NewReader(`{"horizon":"long"}`), cfg)
	require.ErrorContains(t, err, "failed to parse JSON run configuration")
}

func TestParseFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/run.yml", []byte(yamlConfig), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/run.toml", []byte("dataset = 'm4'"), 0o644))

	cfg := &models.RunConfiguration{}
	require.NoError(t, ParseFile(fs, "/run.yml", cfg))
	require.Equal(t, "spacetime", cfg.Model)

	require.ErrorContains(t, ParseFile(fs, "/run.toml", cfg), "unsupported file format")
	require.ErrorContains(t, ParseFile(fs, "/missing.json", cfg), "failed to open file")
}
