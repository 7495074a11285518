package configuration

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	TopicButtonUpdated = "button.updated"
	TopicTableReset    = "table.reset"
	TopicPortSelected  = "port.selected"
)

// ButtonUpdate is the payload of TopicButtonUpdated
type ButtonUpdate struct {
	Index  int          `json:"index"`
	Button ButtonConfig `json:"button"`
}

// ConfigManager owns the runtime button table and tells subscribers about
// changes. Nothing is written to disk.
type ConfigManager struct {
	log         zerolog.Logger
	table       *ButtonConfigTable
	subscribers map[string][]func(interface{})
}

func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		log:         log.With().Str("module", "Configuration").Logger(),
		table:       NewButtonConfigTable(),
		subscribers: make(map[string][]func(interface{})),
	}
}

func (cm *ConfigManager) Table() *ButtonConfigTable {
	return cm.table
}

// Subscribe registers a callback for configuration changes. Register
// everything before events start flowing.
func (cm *ConfigManager) Subscribe(topic string, callback func(interface{})) {
	cm.subscribers[topic] = append(cm.subscribers[topic], callback)
}

// Notify sends updates to subscribers. Callbacks run on the caller's
// goroutine and must not block.
func (cm *ConfigManager) Notify(topic string, data interface{}) {
	for _, callback := range cm.subscribers[topic] {
		callback(data)
	}
}

func (cm *ConfigManager) Get(index int) (ButtonConfig, error) {
	return cm.table.Get(index)
}

// SetButton replaces one entry of the table
func (cm *ConfigManager) SetButton(index int, button ButtonConfig) error {
	if err := cm.table.Set(index, button); err != nil {
		return err
	}
	cm.log.Debug().
		Int("button", index).
		Str("function", string(button.Function)).
		Uint8("channel", button.Channel).
		Uint8("value", button.Value).
		Msg("Button updated")
	cm.Notify(TopicButtonUpdated, ButtonUpdate{Index: index, Button: button})
	return nil
}

func (cm *ConfigManager) OnDeviceAttached(buttons int) bool {
	if !cm.table.OnDeviceAttached(buttons) {
		return false
	}
	cm.log.Info().Msgf("Button table reset to %d default entries", buttons)
	cm.Notify(TopicTableReset, cm.table.Len())
	return true
}

func (cm *ConfigManager) OnDeviceDetached() {
	cm.table.OnDeviceDetached()
	cm.log.Info().Msg("Button table cleared")
	cm.Notify(TopicTableReset, 0)
}
