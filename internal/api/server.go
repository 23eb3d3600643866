// Package api exposes the sensor over HTTP with huma.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/sensornode/internal/api/models"
	"github.com/smazurov/sensornode/internal/controls"
	"github.com/smazurov/sensornode/internal/events"
	"github.com/smazurov/sensornode/internal/led"
	"github.com/smazurov/sensornode/internal/logging"
	"github.com/smazurov/sensornode/internal/modes"
	"github.com/smazurov/sensornode/internal/presets"
	"github.com/smazurov/sensornode/internal/sensor"
	"github.com/smazurov/sensornode/internal/version"
)

const authRealm = `Basic realm="SensorNode API"`

// SensorService is the sensor surface the API drives.
type SensorService interface {
	EntityName() string
	ModuleInfo() sensor.ModuleInfo
	BusConfig() sensor.BusConfig
	State() sensor.DeviceState

	Format() sensor.Format
	SetFormat(width, height uint32) (sensor.Format, error)
	TryFormat(width, height uint32) sensor.Format
	EnumMbusCodes() []uint32
	EnumFrameSizes(code uint32) ([]modes.Size, error)
	EnumFrameIntervals() []modes.Interval
	CropBounds() sensor.Rect

	Controls() []controls.Spec
	Control(id controls.ID) (controls.Spec, int64, error)
	SetControl(id controls.ID, value int64) error

	SetPower(on bool) error
	StreamOn() error
	StreamOff() error
}

// PresetService applies and stores presets.
type PresetService interface {
	Apply(name string) ([]string, error)
	Store() presets.Store
}

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Sensor            SensorService
	Presets           PresetService  // optional
	EventBus          *events.Bus    // optional; SSE routes need it
	LEDController     led.Controller // optional
	PrometheusHandler http.Handler   // optional
}

// Server is the huma API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	sensor     SensorService
	presets    PresetService
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// NewServer creates the API server and registers every route.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("SensorNode API", "1.0.0")
	config.Info.Description = "Control API for an IMX290 image sensor"
	// Relative paths so the document works behind any host.
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	s := &Server{
		api:      api,
		mux:      mux,
		sensor:   opts.Sensor,
		presets:  opts.Presets,
		eventBus: opts.EventBus,
		options:  opts,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(s.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	s.registerRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// API returns the huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Start serves HTTP on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting SensorNode API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the listener and every open connection, including SSE
// streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		encoded := ""
		if header := ctx.Header("Authorization"); header != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(header, prefix) {
				s.unauthorized(ctx, "Invalid authentication type", nil)
				return
			}
			encoded = header[len(prefix):]
		} else {
			// EventSource cannot set headers; SSE clients pass ?auth=.
			encoded = ctx.Query("auth")
		}
		if encoded == "" {
			s.unauthorized(ctx, "Authentication required", nil)
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			s.unauthorized(ctx, "Invalid credentials format", err)
			return
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			s.unauthorized(ctx, "Invalid credentials format", nil)
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !userOK || !passOK {
			s.unauthorized(ctx, "Invalid credentials", nil)
			return
		}
		next(ctx)
	}
}

func (s *Server) unauthorized(ctx huma.Context, msg string, err error) {
	ctx.SetHeader("WWW-Authenticate", authRealm)
	if err != nil {
		huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, err)
		return
	}
	huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg)
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application and driver version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		v := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:       v.Version,
				DriverVersion: v.DriverVersion,
				GitCommit:     v.GitCommit,
				BuildDate:     v.BuildDate,
				BuildID:       v.BuildID,
				GoVersion:     v.GoVersion,
				Compiler:      v.Compiler,
				Platform:      v.Platform,
			},
		}, nil
	})

	s.registerSensorRoutes()
	s.registerControlRoutes()
	s.registerPresetRoutes()
	s.registerLEDRoutes()
	s.registerLogRoutes()
	s.registerSSERoutes()
}

// withAuth returns the basic auth security requirement.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
