package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/sensornode/cmd"
	"github.com/smazurov/sensornode/internal/api"
	"github.com/smazurov/sensornode/internal/board"
	"github.com/smazurov/sensornode/internal/config"
	"github.com/smazurov/sensornode/internal/events"
	"github.com/smazurov/sensornode/internal/led"
	"github.com/smazurov/sensornode/internal/logging"
	"github.com/smazurov/sensornode/internal/power"
	"github.com/smazurov/sensornode/internal/presets"
	"github.com/smazurov/sensornode/internal/sensor"
	"github.com/smazurov/sensornode/internal/systemd"
	"github.com/smazurov/sensornode/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Board settings
	BoardSimulate    bool   `help:"Use a simulated sensor" default:"false" toml:"board.simulate" env:"BOARD_SIMULATE"`
	BoardI2CBus      string `help:"I2C bus name (empty selects the first bus)" default:"" toml:"board.i2c_bus" env:"BOARD_I2C_BUS"`
	BoardI2CAddr     string `help:"Sensor I2C address" default:"0x1a" toml:"board.i2c_addr" env:"BOARD_I2C_ADDR"`
	BoardGPIOReset   string `help:"Reset line name" default:"" toml:"board.gpio_reset" env:"BOARD_GPIO_RESET"`
	BoardGPIOPwdn    string `help:"Power-down line name" default:"" toml:"board.gpio_pwdn" env:"BOARD_GPIO_PWDN"`
	BoardSupplyAVDD  string `help:"avdd enable line name" default:"" toml:"board.supply_avdd" env:"BOARD_SUPPLY_AVDD"`
	BoardSupplyDOVDD string `help:"dovdd enable line name" default:"" toml:"board.supply_dovdd" env:"BOARD_SUPPLY_DOVDD"`
	BoardSupplyDVDD  string `help:"dvdd enable line name" default:"" toml:"board.supply_dvdd" env:"BOARD_SUPPLY_DVDD"`

	// Sensor settings
	SensorModuleIndex  int    `help:"Camera module index" default:"0" toml:"sensor.module_index" env:"SENSOR_MODULE_INDEX"`
	SensorModuleFacing string `help:"Camera module facing (back, front)" default:"back" toml:"sensor.module_facing" env:"SENSOR_MODULE_FACING"`
	SensorModuleName   string `help:"Camera module name" default:"" toml:"sensor.module_name" env:"SENSOR_MODULE_NAME"`
	SensorLensName     string `help:"Lens name" default:"" toml:"sensor.lens_name" env:"SENSOR_LENS_NAME"`
	SensorBusType      string `help:"Data bus type (csi2-dphy, ccp2)" default:"csi2-dphy" toml:"sensor.bus_type" env:"SENSOR_BUS_TYPE"`
	SensorLanes        int    `help:"Data lanes" default:"2" toml:"sensor.lanes" env:"SENSOR_LANES"`
	SensorGroupHold    bool   `help:"Latch multi-register updates with group hold" default:"false" toml:"sensor.group_hold" env:"SENSOR_GROUP_HOLD"`
	SensorAutosuspend  string `help:"Delay before powering down an idle sensor" default:"2s" toml:"sensor.autosuspend" env:"SENSOR_AUTOSUSPEND"`

	// Presets settings
	PresetsFile  string `help:"Presets file" default:"presets.toml" toml:"presets.file" env:"PRESETS_FILE"`
	PresetsWatch bool   `help:"Reload presets when the file changes" default:"true" toml:"presets.watch" env:"PRESETS_WATCH"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	FeaturesLEDControl bool   `help:"Enable LED control" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`
	FeaturesLEDType    string `help:"LED driven by sensor state" default:"user" toml:"features.led_type" env:"FEATURES_LED_TYPE"`
	FeaturesMetrics    bool   `help:"Expose Prometheus metrics" default:"true" toml:"features.metrics_enabled" env:"FEATURES_METRICS"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSensor   string `help:"Sensor logging level" default:"info" toml:"logging.sensor" env:"LOGGING_SENSOR"`
	LoggingControls string `help:"Controls logging level" default:"info" toml:"logging.controls" env:"LOGGING_CONTROLS"`
	LoggingPower    string `help:"Power logging level" default:"info" toml:"logging.power" env:"LOGGING_POWER"`
	LoggingBus      string `help:"Register bus logging level" default:"info" toml:"logging.bus" env:"LOGGING_BUS"`
	LoggingPresets  string `help:"Presets logging level" default:"info" toml:"logging.presets" env:"LOGGING_PRESETS"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		configErr := config.LoadConfig(opts, cli.Root())

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"sensor":   opts.LoggingSensor,
				"controls": opts.LoggingControls,
				"power":    opts.LoggingPower,
				"stream":   opts.LoggingSensor,
				"bus":      opts.LoggingBus,
				"presets":  opts.LoggingPresets,
				"api":      opts.LoggingAPI,
			},
		})

		logger := logging.GetLogger("main")
		if configErr != nil {
			logger.Warn("Failed to load config", "error", configErr)
		}
		logger.Info("Starting sensornode", "version", version.String())

		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		addr, err := cmd.ParseAddr(opts.BoardI2CAddr)
		if err != nil {
			logger.Error("Invalid board configuration", "error", err)
			os.Exit(1)
		}
		supplies := map[string]string{}
		for name, line := range map[string]string{
			"avdd":  opts.BoardSupplyAVDD,
			"dovdd": opts.BoardSupplyDOVDD,
			"dvdd":  opts.BoardSupplyDVDD,
		} {
			if line != "" {
				supplies[name] = line
			}
		}
		hw, err := board.Open(board.Config{
			Simulate:  opts.BoardSimulate,
			I2CBus:    opts.BoardI2CBus,
			Addr:      addr,
			Reset:     opts.BoardGPIOReset,
			PowerDown: opts.BoardGPIOPwdn,
			Supplies:  supplies,
		})
		if err != nil {
			logger.Error("Failed to open board", "error", err)
			os.Exit(1)
		}

		autosuspend, err := time.ParseDuration(opts.SensorAutosuspend)
		if err != nil {
			logger.Warn("Invalid autosuspend delay, using default", "value", opts.SensorAutosuspend, "error", err)
			autosuspend = 2 * time.Second
		}

		imx, err := sensor.New(sensor.Config{
			ModuleIndex:  opts.SensorModuleIndex,
			ModuleFacing: opts.SensorModuleFacing,
			ModuleName:   opts.SensorModuleName,
			LensName:     opts.SensorLensName,
			BusType:      sensor.BusType(opts.SensorBusType),
			Lanes:        opts.SensorLanes,
			DeviceName:   hw.DeviceName,
			GroupHold:    opts.SensorGroupHold,
		}, sensor.Deps{
			Transport:   hw.Transport,
			Board:       hw.Board,
			Timing:      power.DefaultTiming,
			Autosuspend: autosuspend,
			Events:      eventBus,
		})
		if err != nil {
			logger.Error("Failed to create sensor", "error", err)
			os.Exit(1)
		}

		presetManager := presets.NewManager(presets.NewTOML(opts.PresetsFile), imx, eventBus)
		if err := presetManager.Store().Load(); err != nil {
			logger.Warn("Failed to load presets", "file", opts.PresetsFile, "error", err)
		}

		var ledManager *led.Manager
		var ledController led.Controller
		if opts.FeaturesLEDControl {
			logger.Info("LED control enabled, initializing")
			ledController = led.New(logger)
			ledManager = led.NewManager(ledController, opts.FeaturesLEDType, eventBus, logger)
		}

		apiOpts := &api.Options{
			AuthUsername:  opts.AuthUsername,
			AuthPassword:  opts.AuthPassword,
			Sensor:        imx,
			Presets:       presetManager,
			EventBus:      eventBus,
			LEDController: ledController,
		}
		if opts.FeaturesMetrics {
			apiOpts.PrometheusHandler = promhttp.Handler()
		}
		server := api.NewServer(apiOpts)
		notifier := systemd.NewNotifier(logger)

		hooks.OnStart(func() {
			if ledManager != nil {
				ledManager.Start()
			}

			if err := imx.Attach(); err != nil {
				// The API still serves identity and errors so the failure is visible.
				logger.Error("Sensor probe failed", "sensor", imx.EntityName(), "error", err)
				notifier.Status("sensor probe failed")
			} else {
				logger.Info("Sensor attached", "sensor", imx.EntityName())
				if err := presetManager.ApplyActive(); err != nil {
					logger.Warn("Failed to apply active preset", "error", err)
				}
			}

			if opts.PresetsWatch {
				if err := presetManager.Watch(200 * time.Millisecond); err != nil {
					logger.Warn("Failed to watch presets file", "file", opts.PresetsFile, "error", err)
				}
			}

			notifier.Ready()
			logger.Info("Starting HTTP server", "port", opts.Port)
			if err := server.Start(opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()
			if err := server.Stop(); err != nil {
				logger.Error("Error stopping HTTP server", "error", err)
			}
			if err := presetManager.Stop(); err != nil {
				logger.Warn("Error stopping presets watcher", "error", err)
			}
			if err := imx.Close(); err != nil {
				logger.Error("Error closing sensor", "error", err)
			}
			if ledManager != nil {
				ledManager.Stop()
			}
			if err := hw.Close(); err != nil {
				logger.Warn("Error closing board", "error", err)
			}
		})
	})

	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.CreateModesCmd())
	cli.Root().AddCommand(cmd.CreatePresetsCmd())

	cli.Run()
}
