package options

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"trybuild/internal/fileutil"
)

//go:embed sample_options.toml
var sampleOptions string

// WriteSample writes a commented sample options file to path.
func WriteSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create options directory: %w", err)
		}
	}
	if err := fileutil.WriteFileAtomic(path, []byte(sampleOptions), 0o644); err != nil {
		return fmt.Errorf("write sample options: %w", err)
	}
	return nil
}
