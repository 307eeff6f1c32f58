package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxFileSize caps how much of a transcript file Load reads.
var maxFileSize int64 = 16 << 20

// Load reads a transcript file. Files ending in .yaml or .yml are decoded as
// YAML, anything else as a JSON array of lines. Files over 16 MiB are rejected.
func Load(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if int64(len(data)) > maxFileSize {
		return nil, fmt.Errorf("%s is larger than %d bytes", path, maxFileSize)
	}
	return Decode(data, filepath.Ext(path))
}

// Decode parses transcript lines from data using the format implied by ext.
func Decode(data []byte, ext string) ([]Line, error) {
	var lines []Line
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &lines); err != nil {
			return nil, fmt.Errorf("failed to parse yaml transcript: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &lines); err != nil {
			return nil, fmt.Errorf("failed to parse json transcript: %w", err)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("transcript has no lines")
	}
	if err := CheckOrder(lines); err != nil {
		return nil, err
	}
	return lines, nil
}
