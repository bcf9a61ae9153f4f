package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yeha-adry/spacetime/internal/config"
	"github.com/yeha-adry/spacetime/internal/models"
	"github.com/yeha-adry/spacetime/internal/parser"
)

// runFlag binds one command-line flag to a RunConfiguration field.
type runFlag struct {
	name     string
	register func(fs *pflag.FlagSet)
	apply    func(fs *pflag.FlagSet, cfg *models.RunConfiguration) error
}

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

func stringFlag(field, def, usage string, target func(*models.RunConfiguration) *string) runFlag {
	name := flagName(field)
	return runFlag{
		name:     name,
		register: func(fs *pflag.FlagSet) { fs.String(name, def, usage) },
		apply: func(fs *pflag.FlagSet, cfg *models.RunConfiguration) error {
			v, err := fs.GetString(name)
			*target(cfg) = v
			return err
		},
	}
}

// optionalStringFlag treats "None" and "" as unset.
func optionalStringFlag(field, usage string, target func(*models.RunConfiguration) **string) runFlag {
	name := flagName(field)
	return runFlag{
		name:     name,
		register: func(fs *pflag.FlagSet) { fs.String(name, "", usage+" (None to unset)") },
		apply: func(fs *pflag.FlagSet, cfg *models.RunConfiguration) error {
			v, err := fs.GetString(name)
			if err != nil {
				return err
			}
			if v == "" || v == "None" {
				*target(cfg) = nil
				return nil
			}
			*target(cfg) = &v
			return nil
		},
	}
}

func intFlag(field string, def int, usage string, target func(*models.RunConfiguration) *int) runFlag {
	name := flagName(field)
	return runFlag{
		name:     name,
		register: func(fs *pflag.FlagSet) { fs.Int(name, def, usage) },
		apply: func(fs *pflag.FlagSet, cfg *models.RunConfiguration) error {
			v, err := fs.GetInt(name)
			*target(cfg) = v
			return err
		},
	}
}

// optionalIntFlag is only applied when given; negative values unset it.
func optionalIntFlag(field, usage string, target func(*models.RunConfiguration) **int) runFlag {
	name := flagName(field)
	return runFlag{
		name:     name,
		register: func(fs *pflag.FlagSet) { fs.Int(name, -1, usage+" (negative to unset)") },
		apply: func(fs *pflag.FlagSet, cfg *models.RunConfiguration) error {
			if !fs.Changed(name) {
				return nil
			}
			v, err := fs.GetInt(name)
			if err != nil {
				return err
			}
			if v < 0 {
				*target(cfg) = nil
				return nil
			}
			*target(cfg) = &v
			return nil
		},
	}
}

func floatFlag(field string, def float64, usage string, target func(*models.RunConfiguration) *float64) runFlag {
	name := flagName(field)
	return runFlag{
		name:     name,
		register: func(fs *pflag.FlagSet) { fs.Float64(name, def, usage) },
		apply: func(fs *pflag.FlagSet, cfg *models.RunConfiguration) error {
			v, err := fs.GetFloat64(name)
			*target(cfg) = v
			return err
		},
	}
}

func boolFlag(field string, def bool, usage string, target func(*models.RunConfiguration) *bool) runFlag {
	name := flagName(field)
	return runFlag{
		name:     name,
		register: func(fs *pflag.FlagSet) { fs.Bool(name, def, usage) },
		apply: func(fs *pflag.FlagSet, cfg *models.RunConfiguration) error {
			v, err := fs.GetBool(name)
			*target(cfg) = v
			return err
		},
	}
}

var runFlags = []runFlag{
	stringFlag("dataset", "", "Dataset name (required)", func(c *models.RunConfiguration) *string { return &c.Dataset }),
	stringFlag("dataset_type", "informer", "Dataset family; grokking adds task fields to the names", func(c *models.RunConfiguration) *string { return &c.DatasetType }),
	optionalStringFlag("variant", "Dataset variant appended to the dataset name", func(c *models.RunConfiguration) **string { return &c.Variant }),
	stringFlag("model", "", "Model name (required)", func(c *models.RunConfiguration) *string { return &c.Model }),

	stringFlag("embedding_config", "embedding/repeat", "Embedding config", func(c *models.RunConfiguration) *string { return &c.EmbeddingConfig }),
	stringFlag("preprocess_config", "preprocess/default", "Preprocess config", func(c *models.RunConfiguration) *string { return &c.PreprocessConfig }),
	stringFlag("encoder_config", "encoder/default", "Encoder config", func(c *models.RunConfiguration) *string { return &c.EncoderConfig }),
	stringFlag("decoder_config", "decoder/default", "Decoder config", func(c *models.RunConfiguration) *string { return &c.DecoderConfig }),
	stringFlag("output_config", "output/default", "Output config", func(c *models.RunConfiguration) *string { return &c.OutputConfig }),

	intFlag("n_blocks", 3, "Number of blocks", func(c *models.RunConfiguration) *int { return &c.NBlocks }),
	intFlag("n_kernels", 8, "Number of kernels", func(c *models.RunConfiguration) *int { return &c.NKernels }),
	intFlag("n_heads", 1, "Number of heads", func(c *models.RunConfiguration) *int { return &c.NHeads }),
	intFlag("embedding_dim", 64, "Embedding dimension", func(c *models.RunConfiguration) *int { return &c.EmbeddingDim }),
	intFlag("kernel_dim", 64, "Kernel dimension", func(c *models.RunConfiguration) *int { return &c.KernelDim }),
	stringFlag("kernel_init", "normal", "Kernel initialization", func(c *models.RunConfiguration) *string { return &c.KernelInit }),
	intFlag("lag", 336, "Input window length", func(c *models.RunConfiguration) *int { return &c.Lag }),
	intFlag("horizon", 96, "Forecast horizon", func(c *models.RunConfiguration) *int { return &c.Horizon }),
	stringFlag("loss", "informer_rmse", "Training loss", func(c *models.RunConfiguration) *string { return &c.Loss }),
	stringFlag("activation", "gelu", "Activation", func(c *models.RunConfiguration) *string { return &c.Activation }),
	floatFlag("dropout", 0.25, "Dropout", func(c *models.RunConfiguration) *float64 { return &c.Dropout }),
	boolFlag("layernorm", false, "Use layer normalization", func(c *models.RunConfiguration) *bool { return &c.Layernorm }),

	floatFlag("lr", 0.001, "Learning rate", func(c *models.RunConfiguration) *float64 { return &c.LR }),
	stringFlag("optimizer", "adamw", "Optimizer", func(c *models.RunConfiguration) *string { return &c.Optimizer }),
	optionalStringFlag("scheduler", "Learning rate scheduler", func(c *models.RunConfiguration) **string { return &c.Scheduler }),
	floatFlag("weight_decay", 0.0001, "Weight decay", func(c *models.RunConfiguration) *float64 { return &c.WeightDecay }),
	intFlag("batch_size", 32, "Batch size", func(c *models.RunConfiguration) *int { return &c.BatchSize }),
	stringFlag("val_metric", "informer_rmse", "Validation metric", func(c *models.RunConfiguration) *string { return &c.ValMetric }),
	intFlag("max_epochs", 500, "Maximum number of epochs", func(c *models.RunConfiguration) *int { return &c.MaxEpochs }),
	intFlag("early_stopping_epochs", 20, "Epochs without improvement before stopping", func(c *models.RunConfiguration) *int { return &c.EarlyStoppingEpochs }),
	intFlag("replicate", 0, "Replicate index", func(c *models.RunConfiguration) *int { return &c.Replicate }),
	{
		name:     "seed",
		register: func(fs *pflag.FlagSet) { fs.Int64("seed", 0, "Random seed") },
		apply: func(fs *pflag.FlagSet, cfg *models.RunConfiguration) error {
			v, err := fs.GetInt64("seed")
			cfg.Seed = v
			return err
		},
	},

	optionalIntFlag("n_shots", "Number of shots", func(c *models.RunConfiguration) **int { return &c.NShots }),
	optionalIntFlag("num_examples", "Number of grokking examples", func(c *models.RunConfiguration) **int { return &c.NumExamples }),
	optionalIntFlag("vocab_size", "Grokking vocabulary size", func(c *models.RunConfiguration) **int { return &c.VocabSize }),
	optionalIntFlag("input_seq_len", "Grokking input sequence length", func(c *models.RunConfiguration) **int { return &c.InputSeqLen }),

	boolFlag("no_cuda", false, "Train on the CPU even if a GPU is available", func(c *models.RunConfiguration) *bool { return &c.NoCuda }),
	boolFlag("no_wandb", false, "Disable remote tracking", func(c *models.RunConfiguration) *bool { return &c.NoWandb }),
	stringFlag("wandb_entity", "", "Team or user owning the tracking run", func(c *models.RunConfiguration) *string { return &c.WandbEntity }),
	stringFlag("log_dir", "", "Log directory (default from SPACETIME_LOG_DIR)", func(c *models.RunConfiguration) *string { return &c.LogDir }),
	stringFlag("checkpoint_dir", "", "Checkpoint directory (default from SPACETIME_CHECKPOINT_DIR)", func(c *models.RunConfiguration) *string { return &c.CheckpointDir }),
}

func addRunFlags(cmd *cobra.Command) {
	for _, f := range runFlags {
		f.register(cmd.Flags())
	}
	cmd.Flags().String("from-file", "", "Load the run configuration from a file (JSON/YAML)")
	cmd.Flags().String("name-prefix", "", "Prefix of the experiment name")
}

// buildRunConfiguration layers flag defaults, the --from-file document and
// explicitly set flags, in that order, then fills directory defaults from cfg.
func buildRunConfiguration(cmd *cobra.Command, fs afero.Fs, appCfg *config.Config) (*models.RunConfiguration, error) {
	flags := cmd.Flags()
	runCfg := &models.RunConfiguration{}

	for _, f := range runFlags {
		if err := f.apply(flags, runCfg); err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", f.name, err)
		}
	}

	fromFile, _ := flags.GetString("from-file")
	if fromFile != "" {
		if err := parser.ParseFile(fs, fromFile, runCfg); err != nil {
			return nil, fmt.Errorf("failed to parse run configuration: %w", err)
		}
		for _, f := range runFlags {
			if !flags.Changed(f.name) {
				continue
			}
			if err := f.apply(flags, runCfg); err != nil {
				return nil, fmt.Errorf("invalid --%s: %w", f.name, err)
			}
		}
	}

	if runCfg.CheckpointDir == "" {
		runCfg.CheckpointDir = appCfg.CheckpointDir
	}
	if runCfg.LogDir == "" {
		runCfg.LogDir = appCfg.LogDir
	}

	return runCfg, nil
}
