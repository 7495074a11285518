package configuration

import "fmt"

type ButtonFunction string

const (
	Note          ButtonFunction = "Note"
	ControlChange ButtonFunction = "ControlChange"
)

var ButtonFunctions = []ButtonFunction{Note, ControlChange}

func ParseButtonFunction(s string) (ButtonFunction, error) {
	switch ButtonFunction(s) {
	case Note:
		return Note, nil
	case ControlChange:
		return ControlChange, nil
	}
	return "", fmt.Errorf("unknown button function %q", s)
}

// ButtonConfig is the MIDI assignment of one joystick button
type ButtonConfig struct {
	Function ButtonFunction `json:"function"`
	Channel  uint8          `json:"channel"` // 0-15, shown to the user as 1-16
	Value    uint8          `json:"value"`   // note or controller number, 0-127
}

func DefaultButtonConfig() ButtonConfig {
	return ButtonConfig{Function: Note}
}

// Settings are read once at startup. The button table is not part of them.
type Settings struct {
	Output        OutputSettings        `yaml:"output"`
	Note          NoteSettings          `yaml:"note"`
	ControlChange ControlChangeSettings `yaml:"controlChange"`
	WebUI         WebUISettings         `yaml:"webui"`
	Log           LogSettings           `yaml:"log"`
	Statsview     StatsviewSettings     `yaml:"statsview"`
}

type OutputSettings struct {
	Port string `yaml:"port"` // MIDI out port name, first port when empty
}

type NoteSettings struct {
	Velocity uint8 `yaml:"velocity"`
}

type ControlChangeSettings struct {
	On  uint8 `yaml:"on"`  // data byte sent on press
	Off uint8 `yaml:"off"` // data byte sent on release
}

type WebUISettings struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LogSettings struct {
	Level string `yaml:"level"`
}

// StatsviewSettings apply to statsview builds run with --statsview
type StatsviewSettings struct {
	Addr string `yaml:"addr"`
}
