package parser

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/yeha-adry/spacetime/internal/models"
)

// ParseYAMLRunConfiguration is the YAML counterpart of
// ParseJSONRunConfiguration. An empty document is not an error.
func ParseYAMLRunConfiguration(reader io.Reader, cfg *models.RunConfiguration) error {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML run configuration: %w", err)
	}

	return nil
}
