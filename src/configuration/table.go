package configuration

import (
	"errors"
	"fmt"
)

var ErrOutOfRange = errors.New("button index out of range")

// ButtonConfigTable holds one ButtonConfig per button of the tracked device.
// It is empty while no device is attached.
type ButtonConfigTable struct {
	buttons  []ButtonConfig
	attached bool
}

func NewButtonConfigTable() *ButtonConfigTable {
	return &ButtonConfigTable{buttons: []ButtonConfig{}}
}

// OnDeviceAttached fills the table with defaults, one per button. It returns
// false and leaves the table alone if a device is already attached.
func (t *ButtonConfigTable) OnDeviceAttached(buttons int) bool {
	if t.attached {
		return false
	}
	if buttons < 0 {
		buttons = 0
	}
	t.buttons = make([]ButtonConfig, buttons)
	for i := range t.buttons {
		t.buttons[i] = DefaultButtonConfig()
	}
	t.attached = true
	return true
}

func (t *ButtonConfigTable) OnDeviceDetached() {
	t.buttons = []ButtonConfig{}
	t.attached = false
}

func (t *ButtonConfigTable) Attached() bool {
	return t.attached
}

func (t *ButtonConfigTable) Len() int {
	return len(t.buttons)
}

func (t *ButtonConfigTable) Get(index int) (ButtonConfig, error) {
	if index < 0 || index >= len(t.buttons) {
		return ButtonConfig{}, fmt.Errorf("%w: %d (table has %d)", ErrOutOfRange, index, len(t.buttons))
	}
	return t.buttons[index], nil
}

func (t *ButtonConfigTable) Set(index int, config ButtonConfig) error {
	if index < 0 || index >= len(t.buttons) {
		return fmt.Errorf("%w: %d (table has %d)", ErrOutOfRange, index, len(t.buttons))
	}
	t.buttons[index] = config
	return nil
}

// All returns a copy of the table
func (t *ButtonConfigTable) All() []ButtonConfig {
	buttons := make([]ButtonConfig, len(t.buttons))
	copy(buttons, t.buttons)
	return buttons
}
