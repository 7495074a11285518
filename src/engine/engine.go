package engine

import (
	"context"
	"errors"

	"github.com/0h41/joykontrol/src/configuration"
	"github.com/0h41/joykontrol/src/device"
	"github.com/0h41/joykontrol/src/mapping"
	"github.com/0h41/joykontrol/src/midi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("engine is not running")

// Output is the MIDI sink as the engine sees it
type Output interface {
	mapping.Sink
	Ports() ([]midi.Port, error)
	Open(index int) error
	Close() error
	Selected() int
}

// State is a snapshot of everything the configuration UI shows
type State struct {
	Device   string                       `json:"device"`
	Attached bool                         `json:"attached"`
	Buttons  []configuration.ButtonConfig `json:"buttons"`
	Ports    []midi.Port                  `json:"ports"`
	Selected int                          `json:"selected"`
}

type command struct {
	fn   func() error
	done chan error
}

// Engine owns the button table, the tracked joystick and the MIDI output.
// All of them are only touched from the goroutine running Run; other
// goroutines go through the exported methods, which post work to it.
type Engine struct {
	log        zerolog.Logger
	config     *configuration.ConfigManager
	devices    *device.Manager
	translator *mapping.Translator
	output     Output
	commands   chan command
	stopped    chan struct{}
}

func New(provider device.Provider, output Output, codec midi.Codec) *Engine {
	config := configuration.NewConfigManager()
	return &Engine{
		log:        log.With().Str("module", "Engine").Logger(),
		config:     config,
		devices:    device.NewManager(provider, config),
		translator: mapping.NewTranslator(config, codec, output),
		output:     output,
		commands:   make(chan command),
		stopped:    make(chan struct{}),
	}
}

// Config gives access to change subscriptions. Subscribe before calling Run.
func (e *Engine) Config() *configuration.ConfigManager {
	return e.config
}

// Run processes events and posted commands in arrival order until ctx is
// done or events is closed. The tracked joystick is released on return.
func (e *Engine) Run(ctx context.Context, events <-chan device.Event) error {
	defer close(e.stopped)
	defer e.devices.Close()

	e.log.Info().Msg("Engine started")
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("Engine stopped")
			return nil
		case event, ok := <-events:
			if !ok {
				e.log.Info().Msg("Event source closed")
				return nil
			}
			e.handle(event)
		case cmd := <-e.commands:
			cmd.done <- cmd.fn()
		}
	}
}

func (e *Engine) handle(event device.Event) {
	switch ev := event.(type) {
	case device.Added:
		// failures are logged by the manager
		_ = e.devices.Attach(ev.Which)
	case device.Removed:
		e.devices.Detach(ev.ID)
	case device.Button:
		if id, ok := e.devices.Tracking(); !ok || id != ev.ID {
			return
		}
		if ev.Down {
			e.translator.Pressed(ev.Button)
		} else {
			e.translator.Released(ev.Button)
		}
	}
}

// do runs fn on the engine goroutine and waits for it
func (e *Engine) do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case e.commands <- cmd:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) Snapshot(ctx context.Context) (State, error) {
	var state State
	err := e.do(ctx, func() error {
		ports, err := e.output.Ports()
		if err != nil {
			e.log.Error().Err(err).Msg("Listing MIDI out ports failed")
			ports = []midi.Port{}
		}
		state = State{
			Device:   e.devices.Name(),
			Attached: e.config.Table().Attached(),
			Buttons:  e.config.Table().All(),
			Ports:    ports,
			Selected: e.output.Selected(),
		}
		return nil
	})
	return state, err
}

func (e *Engine) SetButton(ctx context.Context, index int, button configuration.ButtonConfig) error {
	return e.do(ctx, func() error {
		return e.config.SetButton(index, button)
	})
}

// SelectPort closes the current MIDI out port and opens the one at index.
// If the open fails there is no output until a later selection succeeds.
func (e *Engine) SelectPort(ctx context.Context, index int) error {
	return e.do(ctx, func() error {
		if index == e.output.Selected() {
			return nil
		}
		err := e.output.Open(index)
		if err != nil {
			e.log.Error().Err(err).Msg("MIDI out port selection failed, no output configured")
		}
		e.config.Notify(configuration.TopicPortSelected, e.output.Selected())
		return err
	})
}

// Shutdown closes the MIDI output. Call it after Run has returned.
func (e *Engine) Shutdown() {
	if err := e.output.Close(); err != nil {
		e.log.Warn().Err(err).Msg("Closing MIDI out port failed")
	}
}
