package utils

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// LoadTOMLFile parses a TOML file into the provided struct.
func LoadTOMLFile(path string, out interface{}) error {
	if _, err := toml.DecodeFile(path, out); err != nil {
		log.Warnf("TOML parsing error in %s: %v", path, err)
		return err
	}
	return nil
}

// SaveTOMLFile writes a struct out as TOML.
func SaveTOMLFile(data interface{}, path string) error {
	f, err := os.Create(path)
	if err != nil {
		log.Errorf("Failed to create file: %v", err)
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(data)
}

// ParseTOMLMap parses a TOML file into a generic map so callers can salvage
// individual sections from an otherwise broken config file.
func ParseTOMLMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if _, err := toml.Decode(string(data), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractSection pulls one named section out of parsed TOML data.
func ExtractSection(data map[string]any, name string) (map[string]any, bool) {
	section, ok := data[name].(map[string]any)
	return section, ok
}

// ExtractInt safely extracts an integer value from a map.
func ExtractInt(data map[string]any, key string) (int, bool) {
	if v, ok := data[key].(int64); ok {
		return int(v), true
	}
	return 0, false
}

// ExtractFloat safely extracts a float value from a map. TOML integers are
// accepted too since thresholds are often written without a decimal point.
func ExtractFloat(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// ExtractBool safely extracts a bool value from a map.
func ExtractBool(data map[string]any, key string) (bool, bool) {
	if v, ok := data[key].(bool); ok {
		return v, true
	}
	return false, false
}

// ExtractString safely extracts a string value from a map.
func ExtractString(data map[string]any, key string) (string, bool) {
	if v, ok := data[key].(string); ok {
		return v, true
	}
	return "", false
}
