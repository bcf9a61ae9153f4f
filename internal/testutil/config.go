// Package testutil holds fixtures shared by package tests.
package testutil

import "github.com/yeha-adry/spacetime/internal/models"

// ExperimentName is the name RunConfiguration produces without a prefix.
const ExperimentName = "m=spacetime-ec=repeat-pc=default-ec=default-dc=default-oc=default" +
	"-nb=3-nk=8-nh=1-ed=64-kd=64-ki=no-la=84-ho=24-lo=ir-ac=gelu-dr=0.25-la=1" +
	"-lr=0.001-op=adamw-sc=na-wd=0.0001-bs=32-vm=ir-me=100-ese=20-re=0-se=0"

// RunConfiguration returns a forecasting configuration rooted at dir.
func RunConfiguration(dir string) *models.RunConfiguration {
	return &models.RunConfiguration{
		Dataset:             "etth",
		DatasetType:         "informer",
		Model:               "spacetime",
		EmbeddingConfig:     "embedding/repeat",
		PreprocessConfig:    "preprocess/default",
		EncoderConfig:       "encoder/default",
		DecoderConfig:       "decoder/default",
		OutputConfig:        "output/default",
		NBlocks:             3,
		NKernels:            8,
		NHeads:              1,
		EmbeddingDim:        64,
		KernelDim:           64,
		KernelInit:          "normal",
		Lag:                 84,
		Horizon:             24,
		Loss:                "informer_rmse",
		Activation:          "gelu",
		Dropout:             0.25,
		Layernorm:           true,
		LR:                  0.001,
		Optimizer:           "adamw",
		WeightDecay:         0.0001,
		BatchSize:           32,
		ValMetric:           "informer_rmse",
		MaxEpochs:           100,
		EarlyStoppingEpochs: 20,
		Replicate:           0,
		Seed:                0,
		NoWandb:             true,
		LogDir:              dir + "/logs",
		CheckpointDir:       dir + "/checkpoints",
	}
}

// GrokkingConfiguration returns a grokking configuration rooted at dir.
func GrokkingConfiguration(dir string) *models.RunConfiguration {
	c := RunConfiguration(dir)
	c.Dataset = "modular"
	c.DatasetType = models.DatasetTypeGrokking
	c.VocabSize = Int(97)
	c.NumExamples = Int(4000)
	c.InputSeqLen = Int(3)
	return c
}

func Int(i int) *int {
	return &i
}

func String(s string) *string {
	return &s
}
