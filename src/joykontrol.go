package joykontrol

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/0h41/joykontrol/src/configuration"
	"github.com/0h41/joykontrol/src/device"
	"github.com/0h41/joykontrol/src/device/sdljoy"
	"github.com/0h41/joykontrol/src/engine"
	"github.com/0h41/joykontrol/src/midi"
	"github.com/0h41/joykontrol/src/statsview"
	"github.com/0h41/joykontrol/src/webui"
	"github.com/DavidGamba/go-getoptions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	driver "gitlab.com/gomidi/midi/v2/drivers/portmididrv"
)

var (
	commit    string
	version   string
	buildTime string
)

type options struct {
	configPath string
	port       string
	webAddr    string
	noWebUI    bool
	debug      bool
	statsview  bool
}

// Run must be called from the main goroutine, SDL wants its events pumped
// from there.
func Run() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Parse command line
	opt := getoptions.New()
	opt.Self("", "Play MIDI notes and control changes with joystick buttons")
	opt.HelpSynopsisArg("", "")
	opt.HelpCommand("help", opt.Alias("h"), opt.Description("Show this help"))
	opt.Bool("list", false, opt.Alias("l"), opt.Description("List MIDI out ports & joysticks"))
	opt.Bool("version", false, opt.Alias("v"), opt.Description("Show version"))
	opt.Bool("no-webui", false, opt.Description("Disable web interface"))
	opt.Bool("debug", false, opt.Alias("d"), opt.Description("Debug logging"))
	opt.Bool("statsview", false, opt.Description("Serve runtime statistics (statsview builds only)"))
	configPath := opt.String("config", "", opt.Alias("c"), opt.Description("Settings file"))
	port := opt.String("port", "", opt.Alias("p"), opt.Description("MIDI out port name or index"))
	webAddr := opt.String("web-addr", "", opt.Description("Web interface address:port"))
	_, err := opt.Parse(os.Args[1:])
	if opt.Called("help") {
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(0)
	}
	if err != nil {
		log.Error().Err(err).Msg("Invalid command line")
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(1)
	}
	if opt.Called("version") {
		fmt.Printf("Version %s, commit %s, built on %s\n", version, commit, buildTime)
		os.Exit(0)
	}
	if opt.Called("list") {
		os.Exit(list())
	}
	os.Exit(run(options{
		configPath: *configPath,
		port:       *port,
		webAddr:    *webAddr,
		noWebUI:    opt.Called("no-webui"),
		debug:      opt.Called("debug"),
		statsview:  opt.Called("statsview"),
	}))
}

func list() int {
	drv, err := driver.New()
	if err != nil {
		log.Error().Err(err).Msg("Could not initialize MIDI driver")
		return 1
	}
	defer drv.Close()
	if err := midi.List(drv); err != nil {
		log.Error().Err(err).Msg("Could not list MIDI ports")
		return 1
	}

	if err := sdljoy.Init(); err != nil {
		log.Error().Err(err).Msg("Could not list joysticks")
		return 1
	}
	defer sdljoy.Quit()
	sdljoy.List()
	return 0
}

func run(opts options) int {
	// Configuration
	settings, path, err := configuration.Load(opts.configPath)
	if err != nil {
		log.Error().Msgf("Configuration error %+v", err)
		return 1
	}
	setLogLevel(settings.Log.Level, opts.debug)
	if path != "" {
		log.Info().Msgf("Loaded settings from %s", path)
	} else {
		log.Info().Msg("No settings file found, using defaults")
	}

	if opts.statsview {
		stats, err := statsview.Launch(settings.Statsview.Addr)
		if err != nil {
			log.Warn().Err(err).Msg("Runtime statistics not served")
		}
		defer stats.Stop()
	}

	// MIDI output
	drv, err := driver.New()
	if err != nil {
		log.Error().Err(err).Msg("Could not initialize MIDI driver")
		return 1
	}
	defer drv.Close()

	output := midi.NewOutput(drv)
	portName := settings.Output.Port
	if opts.port != "" {
		portName = opts.port
	}
	if err := openInitialPort(output, portName); err != nil {
		log.Error().Err(err).Msg("No MIDI output")
		return 1
	}

	// Joysticks
	if err := sdljoy.Init(); err != nil {
		log.Error().Err(err).Msg("Could not initialize joystick input")
		return 1
	}
	defer sdljoy.Quit()

	codec := midi.Codec{
		Velocity:   settings.Note.Velocity,
		ControlOn:  settings.ControlChange.On,
		ControlOff: settings.ControlChange.Off,
	}
	source := sdljoy.NewSource()
	eng := engine.New(source, output, codec)
	defer eng.Shutdown()

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start web UI if enabled
	if settings.WebUI.Enabled && !opts.noWebUI {
		addr := settings.WebUI.Addr
		if opts.webAddr != "" {
			addr = opts.webAddr
		}
		webServer, err := webui.NewWebUIServer(addr, eng)
		if err != nil {
			log.Error().Err(err).Msg("Could not create web interface")
			return 1
		}
		webServer.Subscribe(eng.Config())
		go func() {
			if err := webServer.Start(); err != nil {
				log.Error().Err(err).Msg("Failed to start web server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = webServer.Stop(shutdownCtx)
		}()
		log.Info().Msgf("Web interface available at http://%s", addr)
	}

	events := make(chan device.Event, 64)
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = eng.Run(ctx, events)
	}()

	// SDL events are pumped on this goroutine until a signal or an SDL quit
	if err := source.Run(ctx, events); err != nil {
		log.Error().Err(err).Msg("Joystick input stopped")
	}
	close(events)
	// the engine closes its joystick through the source on the way out
	source.Serve(engineDone)
	log.Info().Msg("Shutting down")
	return 0
}

// openInitialPort opens the port given by name or index, or the first port
func openInitialPort(output *midi.Output, name string) error {
	ports, err := output.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		return fmt.Errorf("no MIDI out ports available")
	}

	index := 0
	if name != "" {
		if i, err := strconv.Atoi(name); err == nil {
			index = i
		} else if index, err = output.FindPort(name); err != nil {
			return err
		}
	}
	return output.Open(index)
}

func setLogLevel(name string, debug bool) {
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		log.Warn().Msgf("Unknown log level %s, using info", name)
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}
