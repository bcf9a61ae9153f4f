package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/yeha-adry/spacetime/internal/models"
)

// ParseJSONRunConfiguration decodes a run configuration into cfg, leaving
// fields the document does not mention untouched. Unknown fields are
// rejected.
func ParseJSONRunConfiguration(reader io.Reader, cfg *models.RunConfiguration) error {
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse JSON run configuration: %w", err)
	}

	return nil
}
