package midi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	ErrPortOpen = errors.New("could not open MIDI out port")
	ErrNoPort   = errors.New("no MIDI out port open")
)

// Port is one entry of the MIDI out port list
type Port struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// PortLister is the part of drivers.Driver the output needs
type PortLister interface {
	Outs() ([]drivers.Out, error)
}

func listPorts(driver PortLister) ([]Port, error) {
	outs, err := driver.Outs()
	if err != nil {
		return nil, err
	}
	return lo.Map(outs, func(out drivers.Out, i int) Port {
		return Port{Index: i, Name: out.String()}
	}), nil
}

func List(driver PortLister) error {
	log := log.Logger.With().Str("module", "Midi").Logger()
	ports, err := listPorts(driver)
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		log.Warn().Msg("No midi out device found")
	}
	lo.ForEach(ports, func(port Port, i int) {
		log.Info().Msgf("Found midi out device %d:\t%s", port.Index, port.Name)
	})
	return nil
}

// Output is the MIDI sink. At most one out port is open at a time and every
// Open closes the previous port first.
type Output struct {
	log      zerolog.Logger
	driver   PortLister
	out      drivers.Out
	selected int
}

func NewOutput(driver PortLister) *Output {
	return &Output{
		log:      log.With().Str("module", "Midi").Logger(),
		driver:   driver,
		selected: -1,
	}
}

func (o *Output) Ports() ([]Port, error) {
	return listPorts(o.driver)
}

// FindPort returns the index of the port called name. An exact match wins
// over a substring match.
func (o *Output) FindPort(name string) (int, error) {
	ports, err := o.Ports()
	if err != nil {
		return -1, err
	}
	if _, i, ok := lo.FindIndexOf(ports, func(port Port) bool {
		return port.Name == name
	}); ok {
		return i, nil
	}
	if _, i, ok := lo.FindIndexOf(ports, func(port Port) bool {
		return strings.Contains(port.Name, name)
	}); ok {
		return i, nil
	}
	return -1, fmt.Errorf("%w: no port named %q", ErrPortOpen, name)
}

// Selected returns the index of the open port or -1.
func (o *Output) Selected() int {
	return o.selected
}

// Open closes the current port and opens the port at index. On failure the
// output is left without an open port.
func (o *Output) Open(index int) error {
	if err := o.Close(); err != nil {
		o.log.Warn().Err(err).Msg("Closing previous MIDI out port failed")
	}

	outs, err := o.driver.Outs()
	if err != nil {
		return fmt.Errorf("%w %d: %v", ErrPortOpen, index, err)
	}
	if index < 0 || index >= len(outs) {
		return fmt.Errorf("%w: index %d out of range (%d ports)", ErrPortOpen, index, len(outs))
	}

	out := outs[index]
	o.log.Info().Msgf("Opening MIDI out port %s", out.String())
	if err := out.Open(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrPortOpen, out.String(), err)
	}
	o.out = out
	o.selected = index
	return nil
}

func (o *Output) Close() error {
	if o.out == nil {
		return nil
	}
	out := o.out
	o.out = nil
	o.selected = -1
	o.log.Debug().Msgf("Closing MIDI out port %s", out.String())
	return out.Close()
}

// Send writes raw message bytes to the open port unchanged.
func (o *Output) Send(msg []byte) error {
	if o.out == nil {
		return ErrNoPort
	}
	if err := o.out.Send(msg); err != nil {
		return fmt.Errorf("send to %s: %w", o.out.String(), err)
	}
	return nil
}
