package mapping

import (
	"errors"

	"github.com/0h41/joykontrol/src/configuration"
	"github.com/0h41/joykontrol/src/midi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sink receives encoded messages
type Sink interface {
	Send(msg []byte) error
}

type Table interface {
	Get(index int) (configuration.ButtonConfig, error)
}

// Translator turns button presses and releases into MIDI messages. Each
// event produces at most one message and nothing is remembered between
// events.
type Translator struct {
	log   zerolog.Logger
	table Table
	codec midi.Codec
	sink  Sink
}

func NewTranslator(table Table, codec midi.Codec, sink Sink) *Translator {
	return &Translator{
		log:   log.With().Str("module", "Mapping").Logger(),
		table: table,
		codec: codec,
		sink:  sink,
	}
}

func (t *Translator) Pressed(button int) {
	t.translate(button, false)
}

func (t *Translator) Released(button int) {
	t.translate(button, true)
}

func (t *Translator) translate(button int, release bool) {
	config, err := t.table.Get(button)
	if err != nil {
		// no entry yet, the table is filled when the device attaches
		t.log.Debug().Int("button", button).Bool("release", release).Msg("Dropping button event without configuration")
		return
	}

	msg := t.codec.Encode(config.Function, config.Channel, config.Value, release)
	t.log.Debug().Int("button", button).Hex("msg", msg).Msg("Sending MIDI message")

	if err := t.sink.Send(msg); err != nil {
		if errors.Is(err, midi.ErrNoPort) {
			t.log.Warn().Int("button", button).Msg("No MIDI out port open, message dropped")
			return
		}
		t.log.Error().Err(err).Int("button", button).Msg("Sending MIDI message failed")
	}
}
