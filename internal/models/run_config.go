package models

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cast"

	"github.com/yeha-adry/spacetime/internal/device"
)

// DatasetTypeGrokking marks runs whose names carry the grokking task fields.
const DatasetTypeGrokking = "grokking"

// ErrMissingField is matched by every MissingFieldError.
var ErrMissingField = errors.New("missing required configuration field")

// MissingFieldError names the configuration field that was absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField.Error(), e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// RunConfiguration holds the hyperparameters and run options of a single
// training run. The initializer fills in the derived fields at the bottom.
type RunConfiguration struct {
	Dataset     string  `json:"dataset" yaml:"dataset"`
	DatasetType string  `json:"dataset_type" yaml:"dataset_type"`
	Variant     *string `json:"variant" yaml:"variant"`
	Model       string  `json:"model" yaml:"model"`

	EmbeddingConfig  string `json:"embedding_config" yaml:"embedding_config"`
	PreprocessConfig string `json:"preprocess_config" yaml:"preprocess_config"`
	EncoderConfig    string `json:"encoder_config" yaml:"encoder_config"`
	DecoderConfig    string `json:"decoder_config" yaml:"decoder_config"`
	OutputConfig     string `json:"output_config" yaml:"output_config"`

	NBlocks      int     `json:"n_blocks" yaml:"n_blocks"`
	NKernels     int     `json:"n_kernels" yaml:"n_kernels"`
	NHeads       int     `json:"n_heads" yaml:"n_heads"`
	EmbeddingDim int     `json:"embedding_dim" yaml:"embedding_dim"`
	KernelDim    int     `json:"kernel_dim" yaml:"kernel_dim"`
	KernelInit   string  `json:"kernel_init" yaml:"kernel_init"`
	Lag          int     `json:"lag" yaml:"lag"`
	Horizon      int     `json:"horizon" yaml:"horizon"`
	Loss         string  `json:"loss" yaml:"loss"`
	Activation   string  `json:"activation" yaml:"activation"`
	Dropout      float64 `json:"dropout" yaml:"dropout"`
	Layernorm    bool    `json:"layernorm" yaml:"layernorm"`

	LR                  float64 `json:"lr" yaml:"lr"`
	Optimizer           string  `json:"optimizer" yaml:"optimizer"`
	Scheduler           *string `json:"scheduler" yaml:"scheduler"`
	WeightDecay         float64 `json:"weight_decay" yaml:"weight_decay"`
	BatchSize           int     `json:"batch_size" yaml:"batch_size"`
	ValMetric           string  `json:"val_metric" yaml:"val_metric"`
	MaxEpochs           int     `json:"max_epochs" yaml:"max_epochs"`
	EarlyStoppingEpochs int     `json:"early_stopping_epochs" yaml:"early_stopping_epochs"`
	Replicate           int     `json:"replicate" yaml:"replicate"`
	Seed                int64   `json:"seed" yaml:"seed"`

	// Grokking task fields, nil when unused.
	NShots      *int `json:"n_shots" yaml:"n_shots"`
	NumExamples *int `json:"num_examples" yaml:"num_examples"`
	VocabSize   *int `json:"vocab_size" yaml:"vocab_size"`
	InputSeqLen *int `json:"input_seq_len" yaml:"input_seq_len"`

	NoCuda        bool   `json:"no_cuda" yaml:"no_cuda"`
	NoWandb       bool   `json:"no_wandb" yaml:"no_wandb"`
	WandbEntity   string `json:"wandb_entity" yaml:"wandb_entity"`
	LogDir        string `json:"log_dir" yaml:"log_dir"`
	CheckpointDir string `json:"checkpoint_dir" yaml:"checkpoint_dir"`

	Device                  device.Device `json:"device,omitempty" yaml:"-"`
	ExperimentName          string        `json:"experiment_name,omitempty" yaml:"-"`
	BestTrainMetric         float64       `json:"-" yaml:"-"`
	BestValMetric           float64       `json:"-" yaml:"-"`
	BestTrainCheckpointPath string        `json:"best_train_checkpoint_path,omitempty" yaml:"-"`
	BestValCheckpointPath   string        `json:"best_val_checkpoint_path,omitempty" yaml:"-"`
	LogResultsPath          string        `json:"log_results_path,omitempty" yaml:"-"`
	LogConfigsPath          string        `json:"log_configs_path,omitempty" yaml:"-"`
	LogResults              *ResultsLog   `json:"-" yaml:"-"`
}

// IsGrokking reports whether the run uses the grokking task fields.
func (c *RunConfiguration) IsGrokking() bool {
	return c.DatasetType == DatasetTypeGrokking
}

// Validate checks that the fields the initializer cannot default are present.
func (c *RunConfiguration) Validate() error {
	type check struct {
		name  string
		empty bool
	}
	required := []check{
		{"dataset", c.Dataset == ""},
		{"model", c.Model == ""},
		{"checkpoint_dir", c.CheckpointDir == ""},
		{"log_dir", c.LogDir == ""},
	}
	if c.IsGrokking() {
		required = append(required,
			check{"vocab_size", c.VocabSize == nil},
			check{"num_examples", c.NumExamples == nil},
			check{"input_seq_len", c.InputSeqLen == nil},
		)
	}
	for _, r := range required {
		if r.empty {
			return &MissingFieldError{Field: r.name}
		}
	}
	return nil
}

// Params flattens the configuration into string values keyed by field name.
// Nil optional fields are reported as "None". Infinite metrics are
// rendered as "inf".
func (c *RunConfiguration) Params() map[string]string {
	params := map[string]string{
		"dataset":               c.Dataset,
		"dataset_type":          c.DatasetType,
		"variant":               optionalString(c.Variant),
		"model":                 c.Model,
		"embedding_config":      c.EmbeddingConfig,
		"preprocess_config":     c.PreprocessConfig,
		"encoder_config":        c.EncoderConfig,
		"decoder_config":        c.DecoderConfig,
		"output_config":         c.OutputConfig,
		"n_blocks":              cast.ToString(c.NBlocks),
		"n_kernels":             cast.ToString(c.NKernels),
		"n_heads":               cast.ToString(c.NHeads),
		"embedding_dim":         cast.ToString(c.EmbeddingDim),
		"kernel_dim":            cast.ToString(c.KernelDim),
		"kernel_init":           c.KernelInit,
		"lag":                   cast.ToString(c.Lag),
		"horizon":               cast.ToString(c.Horizon),
		"loss":                  c.Loss,
		"activation":            c.Activation,
		"dropout":               cast.ToString(c.Dropout),
		"layernorm":             cast.ToString(c.Layernorm),
		"lr":                    cast.ToString(c.LR),
		"optimizer":             c.Optimizer,
		"scheduler":             optionalString(c.Scheduler),
		"weight_decay":          cast.ToString(c.WeightDecay),
		"batch_size":            cast.ToString(c.BatchSize),
		"val_metric":            c.ValMetric,
		"max_epochs":            cast.ToString(c.MaxEpochs),
		"early_stopping_epochs": cast.ToString(c.EarlyStoppingEpochs),
		"replicate":             cast.ToString(c.Replicate),
		"seed":                  cast.ToString(c.Seed),
		"n_shots":               optionalInt(c.NShots),
		"num_examples":          optionalInt(c.NumExamples),
		"vocab_size":            optionalInt(c.VocabSize),
		"input_seq_len":         optionalInt(c.InputSeqLen),
		"no_cuda":               cast.ToString(c.NoCuda),
		"no_wandb":              cast.ToString(c.NoWandb),
		"wandb_entity":          c.WandbEntity,
		"log_dir":               c.LogDir,
		"checkpoint_dir":        c.CheckpointDir,
	}

	if c.Device != "" {
		params["device"] = c.Device.String()
	}
	if c.ExperimentName != "" {
		params["experiment_name"] = c.ExperimentName
		params["best_train_metric"] = formatMetric(c.BestTrainMetric)
		params["best_val_metric"] = formatMetric(c.BestValMetric)
	}
	for key, value := range map[string]string{
		"best_train_checkpoint_path": c.BestTrainCheckpointPath,
		"best_val_checkpoint_path":   c.BestValCheckpointPath,
		"log_results_path":           c.LogResultsPath,
		"log_configs_path":           c.LogConfigsPath,
	} {
		if value != "" {
			params[key] = value
		}
	}
	return params
}

// ParamKeys returns the keys of Params in sorted order.
func (c *RunConfiguration) ParamKeys() []string {
	return sortedKeys(c.Params())
}

func optionalString(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}

func optionalInt(i *int) string {
	if i == nil {
		return "None"
	}
	return cast.ToString(*i)
}

func formatMetric(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return cast.ToString(v)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
