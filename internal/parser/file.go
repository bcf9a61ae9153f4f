// Package parser reads run configuration files.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/yeha-adry/spacetime/internal/models"
)

// ParseFile decodes the JSON or YAML file at path into cfg, picking the
// format from the extension.
func ParseFile(fs afero.Fs, path string, cfg *models.RunConfiguration) error {
	file, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseJSONRunConfiguration(file, cfg)
	case ".yaml", ".yml":
		return ParseYAMLRunConfiguration(file, cfg)
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}
