package database

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
)

// loadFromYAMLFile is a generic YAML loader for a single filename in a directory.
// It returns an empty slice if the file is not found or empty.
func loadFromYAMLFile[T any](dataDir, filename string, decode func([]byte) ([]T, error)) ([]T, error) {
	path := filepath.Join(dataDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, err
	}

	if len(data) == 0 {
		return []T{}, nil
	}

	return decode(data)
}

// jsonEqual compares two JSON payloads semantically (ignoring key order)
func jsonEqual(a, b []byte) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	var ja interface{}
	var jb interface{}
	if err := json.Unmarshal(a, &ja); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &jb); err != nil {
		return false
	}
	return reflect.DeepEqual(ja, jb)
}
