// Package naming derives the deterministic experiment and project names
// of a run from its configuration.
package naming

import (
	"strconv"
	"strings"

	"github.com/yeha-adry/spacetime/internal/models"
)

// Field maps a configuration field name to its value.
type Field struct {
	Name  string
	Value func(c *models.RunConfiguration) any
}

func intPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func strPtr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// Hyperparameters lists the fields that identify a run, in the order they
// appear in the experiment name.
var Hyperparameters = []Field{
	{"embedding_config", func(c *models.RunConfiguration) any { return c.EmbeddingConfig }},
	{"preprocess_config", func(c *models.RunConfiguration) any { return c.PreprocessConfig }},
	{"encoder_config", func(c *models.RunConfiguration) any { return c.EncoderConfig }},
	{"decoder_config", func(c *models.RunConfiguration) any { return c.DecoderConfig }},
	{"output_config", func(c *models.RunConfiguration) any { return c.OutputConfig }},
	{"n_blocks", func(c *models.RunConfiguration) any { return c.NBlocks }},
	{"n_kernels", func(c *models.RunConfiguration) any { return c.NKernels }},
	{"n_heads", func(c *models.RunConfiguration) any { return c.NHeads }},
	{"embedding_dim", func(c *models.RunConfiguration) any { return c.EmbeddingDim }},
	{"kernel_dim", func(c *models.RunConfiguration) any { return c.KernelDim }},
	{"kernel_init", func(c *models.RunConfiguration) any { return c.KernelInit }},
	{"lag", func(c *models.RunConfiguration) any { return c.Lag }},
	{"horizon", func(c *models.RunConfiguration) any { return c.Horizon }},
	{"loss", func(c *models.RunConfiguration) any { return c.Loss }},
	{"activation", func(c *models.RunConfiguration) any { return c.Activation }},
	{"dropout", func(c *models.RunConfiguration) any { return c.Dropout }},
	{"layernorm", func(c *models.RunConfiguration) any { return c.Layernorm }},
	{"lr", func(c *models.RunConfiguration) any { return c.LR }},
	{"optimizer", func(c *models.RunConfiguration) any { return c.Optimizer }},
	{"scheduler", func(c *models.RunConfiguration) any { return strPtr(c.Scheduler) }},
	{"weight_decay", func(c *models.RunConfiguration) any { return c.WeightDecay }},
	{"batch_size", func(c *models.RunConfiguration) any { return c.BatchSize }},
	{"val_metric", func(c *models.RunConfiguration) any { return c.ValMetric }},
	{"max_epochs", func(c *models.RunConfiguration) any { return c.MaxEpochs }},
	{"early_stopping_epochs", func(c *models.RunConfiguration) any { return c.EarlyStoppingEpochs }},
	{"replicate", func(c *models.RunConfiguration) any { return c.Replicate }},
}

// GrokkingFields are appended to both names for grokking datasets.
var GrokkingFields = []Field{
	{"vocab_size", func(c *models.RunConfiguration) any { return intPtr(c.VocabSize) }},
	{"num_examples", func(c *models.RunConfiguration) any { return intPtr(c.NumExamples) }},
	{"input_seq_len", func(c *models.RunConfiguration) any { return intPtr(c.InputSeqLen) }},
}

// Replacements are applied in order to the whole experiment name. They
// match anywhere, so a model called "abnormal" becomes "abno".
var Replacements = [][2]string{
	{"True", "1"},
	{"False", "0"},
	{"None", "na"},
	{"normal", "no"},
	{"xavier", "xa"},
	{"identity", "id"},
	{"avgpool", "avgp"},
}

func writeFields(b *strings.Builder, c *models.RunConfiguration, fields []Field) {
	for _, f := range fields {
		b.WriteString("-")
		b.WriteString(AbbreviateName(f.Name))
		b.WriteString("=")
		b.WriteString(AbbreviateValue(f.Value(c)))
	}
}

// ExperimentName builds the run label. A non-empty prefix is joined with
// a dash.
func ExperimentName(c *models.RunConfiguration, prefix string) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString("-")
	}
	b.WriteString("m=")
	b.WriteString(c.Model)
	writeFields(&b, c, Hyperparameters)
	b.WriteString("-se=")
	b.WriteString(strconv.FormatInt(c.Seed, 10))
	if c.IsGrokking() {
		writeFields(&b, c, GrokkingFields)
	}
	return Replace(b.String())
}

// Replace applies Replacements to s.
func Replace(s string) string {
	for _, r := range Replacements {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}

// DatasetName is the dataset with its variant appended, if any.
func DatasetName(c *models.RunConfiguration) string {
	if c.Variant == nil {
		return c.Dataset
	}
	return c.Dataset + *c.Variant
}

// ProjectName groups runs of the same dataset and horizon.
func ProjectName(c *models.RunConfiguration) string {
	var b strings.Builder
	b.WriteString("spacetime-d=")
	b.WriteString(DatasetName(c))
	b.WriteString("-horizon=")
	b.WriteString(strconv.Itoa(c.Horizon))
	if c.IsGrokking() {
		writeFields(&b, c, GrokkingFields)
	}
	return b.String()
}
