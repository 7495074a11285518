package midi

import (
	"github.com/0h41/joykontrol/src/configuration"
	"gitlab.com/gomidi/midi/v2"
)

const (
	DefaultVelocity   uint8 = 90
	DefaultControlOn  uint8 = 127
	DefaultControlOff uint8 = 0
)

// Codec turns a button's configuration into a MIDI channel message.
type Codec struct {
	Velocity   uint8 // note on velocity
	ControlOn  uint8 // control change data byte sent on press
	ControlOff uint8 // control change data byte sent on release
}

func DefaultCodec() Codec {
	return Codec{
		Velocity:   DefaultVelocity,
		ControlOn:  DefaultControlOn,
		ControlOff: DefaultControlOff,
	}
}

// Encode builds the message for a press (release == false) or a release.
//
// Note press:             [0x90|channel, note, velocity]
// Note release:           [0x80|channel, note]
// ControlChange press:    [0xB0|channel, controller, ControlOn]
// ControlChange release:  [0xB0|channel, controller, ControlOff]
//
// The note release carries no velocity byte.
func (c Codec) Encode(function configuration.ButtonFunction, channel uint8, value uint8, release bool) midi.Message {
	channel &= 0x0f
	value &= 0x7f

	switch function {
	case configuration.ControlChange:
		data := c.ControlOn
		if release {
			data = c.ControlOff
		}
		return midi.Message{0xB0 | channel, value, data & 0x7f}
	default:
		if release {
			return midi.Message{0x80 | channel, value}
		}
		return midi.Message{0x90 | channel, value, c.Velocity & 0x7f}
	}
}

// Encode uses the default codec.
func Encode(function configuration.ButtonFunction, channel uint8, value uint8, release bool) midi.Message {
	return DefaultCodec().Encode(function, channel, value, release)
}
