package pipeline

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pivotview/pkg/errors"
)

// LoadOptions reads a TOML report file:
//
//	source = "https://olap.internal/pivot"
//	rows = ["Region", "City"]
//	columns = ["Year"]
//	layout = "compact"
//	percent = "column"
//	formats = ["text", "xlsx"]
//
//	[[values]]
//	field = "Sales"
//	aggregation = "sum"
//
//	[[highlight]]
//	name = "big"
//	when = "value > 1000"
//
// Unknown keys are rejected so that typos do not silently fall back to
// defaults. The result is not validated; call ValidateAndSetDefaults.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Options{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "report file %s", path)
		}
		return Options{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read report file %s", path)
	}
	return ParseOptions(data)
}

// ParseOptions decodes TOML report options.
func ParseOptions(data []byte) (Options, error) {
	var opts Options
	md, err := toml.Decode(string(data), &opts)
	if err != nil {
		return Options{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse report")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Options{}, errors.New(errors.ErrCodeInvalidConfig, "unknown report keys: %s", strings.Join(keys, ", "))
	}
	return opts, nil
}
