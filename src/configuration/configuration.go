package configuration

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed settings.schema.json
var settingsSchema string

var compiledSchema = jsonschema.MustCompileString("settings.schema.json", settingsSchema)

func GetDefaultSettings() Settings {
	return Settings{
		Note: NoteSettings{
			Velocity: 90,
		},
		ControlChange: ControlChangeSettings{
			On:  127,
			Off: 0,
		},
		WebUI: WebUISettings{
			Enabled: true,
			Addr:    "127.0.0.1:6081",
		},
		Log: LogSettings{
			Level: "info",
		},
		Statsview: StatsviewSettings{
			Addr: "localhost:12600",
		},
	}
}

// Load reads the settings file. With an empty path the working directory and
// ~/.config/joykontrol are searched; if nothing is found the defaults are
// returned with an empty path.
func Load(path string) (Settings, string, error) {
	var paths []string
	if path != "" {
		paths = []string{path}
	} else {
		homeDir, _ := os.UserHomeDir()
		paths = []string{
			"./joykontrol.yaml",
			filepath.Join(homeDir, ".config", "joykontrol", "config.yaml"),
		}
	}

	for _, candidate := range paths {
		content, err := os.ReadFile(candidate)
		if err != nil {
			if path != "" {
				return GetDefaultSettings(), candidate, fmt.Errorf("could not read settings: %w", err)
			}
			continue
		}
		settings, err := Parse(content)
		if err != nil {
			return GetDefaultSettings(), candidate, fmt.Errorf("error parsing %s: %w", candidate, err)
		}
		return settings, candidate, nil
	}

	return GetDefaultSettings(), "", nil
}

// Parse validates content against the settings schema and decodes it over
// the defaults, so missing keys keep their default value.
func Parse(content []byte) (Settings, error) {
	settings := GetDefaultSettings()
	if err := validate(content); err != nil {
		return settings, err
	}
	if err := yaml.Unmarshal(content, &settings); err != nil {
		return settings, err
	}
	return settings, nil
}

func validate(content []byte) error {
	var document interface{}
	if err := yaml.Unmarshal(content, &document); err != nil {
		return err
	}
	if document == nil {
		// empty file
		return nil
	}

	// go through JSON so the validator sees JSON types only
	data, err := json.Marshal(document)
	if err != nil {
		return err
	}
	var value interface{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return err
	}
	return compiledSchema.Validate(value)
}
