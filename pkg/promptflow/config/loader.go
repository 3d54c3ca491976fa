package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type format int

const (
	formatYAML format = iota
	formatJSON
)

func formatOf(path string) (format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".json":
		return formatJSON, nil
	default:
		return 0, fmt.Errorf("unsupported settings file extension %q (want .yaml, .yml or .json)", ext)
	}
}

// FromFile loads a settings file, choosing the format by extension
// (.yaml, .yml or .json, any case). Errors name the file.
func FromFile(path string) (Config, error) {
	f, err := formatOf(path)
	if err != nil {
		return Config{}, fmt.Errorf("settings %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("settings %s: %w", path, err)
	}

	var cfg Config
	if f == formatJSON {
		cfg, err = FromJSON(data)
	} else {
		cfg, err = FromYAML(data)
	}
	if err != nil {
		return Config{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return cfg, nil
}

// FromFiles loads each file in order and merges them, later files
// overriding earlier ones.
func FromFiles(paths ...string) (Config, error) {
	layers := make([]Config, 0, len(paths))
	for _, p := range paths {
		cfg, err := FromFile(p)
		if err != nil {
			return Config{}, err
		}
		layers = append(layers, cfg)
	}
	return Merge(layers...), nil
}

// FromYAML parses a YAML document. An empty document is an empty Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses a JSON document.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// FromEnv builds a Config from environment entries ("KEY=value") that
// start with prefix and an underscore. The rest of the name is lowercased
// and a double underscore separates sections:
//
//	PROMPTFLOW_RETRY__BUDGET=5       -> retry.budget: 5
//	PROMPTFLOW_LLM__BASE_URL=http:// -> llm.base_url: "http://"
//
// Values are read as YAML scalars, so numbers, booleans and flow lists
// ("[a, b]") keep their types. Anything that does not parse stays a string.
func FromEnv(prefix string, environ []string) Config {
	data := make(map[string]any)
	lead := strings.ToUpper(prefix) + "_"
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(strings.ToUpper(name), lead) {
			continue
		}
		path := strings.Split(strings.ToLower(name[len(lead):]), "__")
		if slices.Contains(path, "") {
			continue
		}
		setPath(data, path, envValue(value))
	}
	return New(data)
}

func envValue(raw string) any {
	if raw == "" {
		return ""
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	if _, isMap := v.(map[string]any); isMap {
		return raw
	}
	return v
}

func setPath(m map[string]any, path []string, value any) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

// Merge combines layers in order. Nested sections are merged key by key;
// any other value in a later layer replaces the earlier one. The inputs
// are not modified.
func Merge(layers ...Config) Config {
	out := make(map[string]any)
	for _, l := range layers {
		mergeInto(out, l.data)
	}
	return New(out)
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		if !srcIsMap {
			dst[k] = v
			continue
		}
		// dst only ever holds maps created here, never a layer's own.
		dstMap, dstIsMap := dst[k].(map[string]any)
		if !dstIsMap {
			dstMap = make(map[string]any, len(srcMap))
		}
		mergeInto(dstMap, srcMap)
		dst[k] = dstMap
	}
}
