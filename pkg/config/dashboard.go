package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// Format is the encoding of a dashboard file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for dashboard files that are neither YAML
// nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported dashboard format")

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadDashboard reads a dashboard definition from path. A relative dataFile
// is resolved against the dashboard's directory.
//
// Only malformed documents and unknown fields fail the load. Per-tab problems
// stay on the tab and surface when it is rendered, and Config.Validate
// reports the rest.
func LoadDashboard(path string) (*model.Config, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dashboard: %w", err)
	}
	cfg, err := ParseDashboard(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if f := cfg.GeneralSettings.DataFile; f != "" {
		f = expandHome(f)
		if !filepath.IsAbs(f) {
			f = filepath.Join(filepath.Dir(path), f)
		}
		cfg.GeneralSettings.DataFile = f
	}
	debug.Log("config: loaded %s (%d tabs)", path, len(cfg.Tabs))
	return cfg, nil
}

// ParseDashboard decodes a dashboard document. YAML is converted to JSON first
// so both formats pass through the same strict decoder.
func ParseDashboard(data []byte, format Format) (*model.Config, error) {
	switch format {
	case FormatYAML:
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	case FormatJSON:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	var cfg model.Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing dashboard: %w", err)
	}
	return &cfg, nil
}

// SaveDashboard writes cfg to path in the format implied by its extension.
func SaveDashboard(cfg *model.Config, path string) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(cfg)
	case FormatJSON:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling dashboard: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dashboard directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing dashboard: %w", err)
	}
	return nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if tree == nil {
		return []byte("{}"), nil
	}
	out, err := json.Marshal(normalize(tree))
	if err != nil {
		return nil, fmt.Errorf("converting yaml: %w", err)
	}
	return out, nil
}

// normalize turns yaml maps with non-string keys (valueMap entries such as
// `1:` or `true:`) into string-keyed maps JSON can carry.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	default:
		return v
	}
}
