// Package sdljoy reads joysticks through SDL2. Init, List, Source.Run,
// Source.Serve and Quit must all be called from the same goroutine; Init locks
// it to its OS thread. Other goroutines reach SDL through the Source.
package sdljoy

import (
	"context"
	"fmt"
	"runtime"

	"github.com/0h41/joykontrol/src/device"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/veandco/go-sdl2/sdl"
)

// milliseconds to wait for an SDL event before checking the context again
const pollTimeout = 100

func Init() error {
	runtime.LockOSThread()

	// joystick events keep coming when no window of ours has focus
	sdl.SetHint(sdl.HINT_JOYSTICK_ALLOW_BACKGROUND_EVENTS, "1")

	if err := sdl.Init(sdl.INIT_JOYSTICK | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %v", err)
	}
	return nil
}

func Quit() {
	sdl.Quit()
}

// List logs the joysticks currently connected
func List() {
	log := log.Logger.With().Str("module", "Joystick").Logger()
	n := sdl.NumJoysticks()
	if n <= 0 {
		log.Warn().Msg("No joystick found")
	}
	for i := 0; i < n; i++ {
		log.Info().Msgf("Found joystick %d:\t%s", i, sdl.JoystickNameForIndex(i))
	}
}

// Source pumps SDL events and forwards the joystick ones. It also opens
// and closes joysticks for the engine, so that SDL is only called from the
// goroutine running Run and Serve.
type Source struct {
	*device.Service
	log zerolog.Logger
}

func NewSource() *Source {
	return &Source{
		Service: device.NewService(),
		log:     log.With().Str("module", "Joystick").Logger(),
	}
}

// Open may be called from any goroutine while Run or Serve is active
func (s *Source) Open(which int) (device.Joystick, error) {
	var opened *joystick
	var err error
	s.Do(func() {
		joy := sdl.JoystickOpen(which)
		if joy == nil {
			err = sdl.GetError()
			if err == nil {
				err = fmt.Errorf("SDL returned no joystick")
			}
			return
		}
		opened = &joystick{
			source:  s,
			joy:     joy,
			id:      int32(joy.InstanceID()),
			name:    joy.Name(),
			buttons: joy.NumButtons(),
		}
	})
	if err != nil {
		return nil, err
	}
	return opened, nil
}

// joystick keeps what SDL reported at open time; only Close goes back to SDL
type joystick struct {
	source  *Source
	joy     *sdl.Joystick
	id      int32
	name    string
	buttons int
}

func (j *joystick) ID() int32    { return j.id }
func (j *joystick) Name() string { return j.name }
func (j *joystick) Buttons() int { return j.buttons }

func (j *joystick) Close() error {
	j.source.Do(j.joy.Close)
	return nil
}

// Run forwards events until ctx is done or SDL asks to quit. SDL sends an
// added event for every joystick already connected when it starts. Once Run
// returns, Serve must run until the engine has stopped.
func (s *Source) Run(ctx context.Context, events chan<- device.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		s.RunPending()

		var event device.Event

		switch ev := sdl.WaitEventTimeout(pollTimeout).(type) {
		case nil:
			continue
		case *sdl.QuitEvent:
			s.log.Info().Msg("SDL quit event")
			return nil
		case *sdl.JoyDeviceAddedEvent:
			event = device.Added{Which: int(ev.Which)}
		case *sdl.JoyDeviceRemovedEvent:
			event = device.Removed{ID: int32(ev.Which)}
		case *sdl.JoyButtonEvent:
			event = device.Button{
				ID:     int32(ev.Which),
				Button: int(ev.Button),
				Down:   ev.State == sdl.PRESSED,
			}
		default:
			continue
		}

		if !s.Send(ctx, events, event) {
			return nil
		}
	}
}
