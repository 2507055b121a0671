package sink

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/pivotview/pkg/pivot"
)

// RenderJSON encodes v as indented JSON.
func RenderJSON(v *pivot.View) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode view: %w", err)
	}
	return append(data, '\n'), nil
}
