package device

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrOpen = errors.New("could not open joystick")

// Joystick is an opened input device
type Joystick interface {
	ID() int32
	Name() string
	Buttons() int
	Close() error
}

// Provider opens joysticks announced by an Added event
type Provider interface {
	Open(which int) (Joystick, error)
}

// Table is resized in lock-step with the tracked device
type Table interface {
	OnDeviceAttached(buttons int) bool
	OnDeviceDetached()
}

// Manager tracks at most one joystick. Added events are ignored while a
// joystick is tracked and Removed events only count for the tracked one.
type Manager struct {
	log      zerolog.Logger
	provider Provider
	table    Table
	joystick Joystick
}

func NewManager(provider Provider, table Table) *Manager {
	return &Manager{
		log:      log.With().Str("module", "Device").Logger(),
		provider: provider,
		table:    table,
	}
}

// Attach opens the joystick and sizes the table for it. A failed open is
// logged and leaves the manager without a device.
func (m *Manager) Attach(which int) error {
	if m.joystick != nil {
		m.log.Debug().Int("which", which).Int32("tracking", m.joystick.ID()).Msg("Already tracking a joystick, ignoring")
		return nil
	}

	joystick, err := m.provider.Open(which)
	if err != nil {
		err = fmt.Errorf("%w %d: %v", ErrOpen, which, err)
		m.log.Error().Err(err).Msg("Joystick attach failed")
		return err
	}

	m.joystick = joystick
	m.log.Info().
		Int32("id", joystick.ID()).
		Str("name", joystick.Name()).
		Int("buttons", joystick.Buttons()).
		Msg("Tracking joystick")
	m.table.OnDeviceAttached(joystick.Buttons())
	return nil
}

// Detach releases the tracked joystick if id matches it. Returns whether the
// joystick was released.
func (m *Manager) Detach(id int32) bool {
	if m.joystick == nil || m.joystick.ID() != id {
		return false
	}
	m.release()
	return true
}

func (m *Manager) release() {
	joystick := m.joystick
	m.joystick = nil
	if err := joystick.Close(); err != nil {
		m.log.Warn().Err(err).Msg("Closing joystick failed")
	}
	m.log.Info().Int32("id", joystick.ID()).Str("name", joystick.Name()).Msg("Joystick removed")
	m.table.OnDeviceDetached()
}

func (m *Manager) Tracking() (int32, bool) {
	if m.joystick == nil {
		return 0, false
	}
	return m.joystick.ID(), true
}

func (m *Manager) Name() string {
	if m.joystick == nil {
		return ""
	}
	return m.joystick.Name()
}

// Close releases the tracked joystick, if any
func (m *Manager) Close() {
	if m.joystick != nil {
		m.release()
	}
}
