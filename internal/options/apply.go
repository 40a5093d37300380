package options

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

// Mapping ties an options-file key to the flag it supplies a default for.
type Mapping struct {
	Key  string
	Flag string
}

// Apply layers values under flags: for every mapping whose flag was not set
// explicitly, a resolved value replaces the compiled-in default. When several
// keys feed the same flag, the last one present in mappings wins.
func Apply(flags *pflag.FlagSet, values Values, mappings []Mapping) error {
	for _, m := range mappings {
		flag := flags.Lookup(m.Flag)
		if flag == nil {
			return fmt.Errorf("options key %q maps to unknown flag %q", m.Key, m.Flag)
		}
		if flag.Changed {
			continue
		}
		if _, ok := values[m.Key]; !ok {
			continue
		}
		if err := setDefault(flag, values, m.Key); err != nil {
			return fmt.Errorf("apply options key %q to --%s: %w", m.Key, m.Flag, err)
		}
	}
	return nil
}

func setDefault(flag *pflag.Flag, values Values, key string) error {
	if slice, ok := flag.Value.(pflag.SliceValue); ok {
		items, ok := values.Strings(key)
		if !ok {
			return fmt.Errorf("expected a list, got %T", values[key])
		}
		return slice.Replace(items)
	}
	if flag.Value.Type() == "bool" {
		b, ok := values.Bool(key)
		if !ok {
			return fmt.Errorf("expected a boolean, got %T", values[key])
		}
		return flag.Value.Set(strconv.FormatBool(b))
	}
	s, ok := values.String(key)
	if !ok {
		return fmt.Errorf("expected a scalar, got %T", values[key])
	}
	return flag.Value.Set(s)
}
