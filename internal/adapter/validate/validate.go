package validate

import (
	"bytes"
	"fmt"

	"github.com/jgivc/proxyctl/internal/common"
	"gopkg.in/yaml.v2"
)

type yamlValidator struct{}

func NewYAMLValidator() *yamlValidator {
	return &yamlValidator{}
}

// Validate accepts a non-empty YAML mapping. Scalars such as HTML error pages parse as
// YAML strings and are rejected.
func (v *yamlValidator) Validate(content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return fmt.Errorf("empty document: %w", common.ErrInvalidProfile)
	}

	var doc yaml.MapSlice
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("%w: %s", common.ErrInvalidProfile, err)
	}

	if len(doc) < 1 {
		return fmt.Errorf("document has no keys: %w", common.ErrInvalidProfile)
	}

	return nil
}
