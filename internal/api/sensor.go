package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/sensornode/internal/api/models"
	"github.com/smazurov/sensornode/internal/controls"
	"github.com/smazurov/sensornode/internal/sensor"
)

func (s *Server) registerSensorRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-sensor",
		Method:      http.MethodGet,
		Path:        "/api/sensor",
		Summary:     "Get Sensor",
		Description: "Get the sensor identity and data bus configuration",
		Tags:        []string{"sensor"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.SensorInfoResponse, error) {
		info := s.sensor.ModuleInfo()
		bus := s.sensor.BusConfig()
		return &models.SensorInfoResponse{
			Body: models.SensorInfoData{
				EntityName: s.sensor.EntityName(),
				Sensor:     info.Sensor,
				Module:     info.Module,
				Lens:       info.Lens,
				BusType:    string(bus.Type),
				Lanes:      bus.Lanes,
				LinkFreq:   bus.LinkFrequency,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-sensor-state",
		Method:      http.MethodGet,
		Path:        "/api/sensor/state",
		Summary:     "Get Sensor State",
		Description: "Get the active format, frame length, power and streaming state",
		Tags:        []string{"sensor"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.SensorStateResponse, error) {
		return &models.SensorStateResponse{Body: stateData(s.sensor.State())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-modes",
		Method:      http.MethodGet,
		Path:        "/api/sensor/modes",
		Summary:     "List Modes",
		Description: "Enumerate pixel codes, frame sizes, frame intervals and the active crop window",
		Tags:        []string{"format"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.ModesResponse, error) {
		codes := s.sensor.EnumMbusCodes()
		resp := &models.ModesResponse{}
		resp.Body.Codes = codes
		resp.Body.Intervals = s.sensor.EnumFrameIntervals()
		if len(codes) > 0 {
			sizes, err := s.sensor.EnumFrameSizes(codes[0])
			if err != nil {
				return nil, mapSensorError(err)
			}
			resp.Body.Sizes = sizes
		}
		crop := s.sensor.CropBounds()
		resp.Body.Crop = models.CropData{Left: crop.Left, Top: crop.Top, Width: crop.Width, Height: crop.Height}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-format",
		Method:      http.MethodGet,
		Path:        "/api/sensor/format",
		Summary:     "Get Format",
		Description: "Get the active media bus format",
		Tags:        []string{"format"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.FormatResponse, error) {
		return &models.FormatResponse{Body: formatData(s.sensor.Format())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-format",
		Method:      http.MethodPut,
		Path:        "/api/sensor/format",
		Summary:     "Set Format",
		Description: "Select the mode nearest to the requested size and return the format applied",
		Tags:        []string{"format"},
		Errors:      []int{400, 401, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.FormatRequest) (*models.FormatResponse, error) {
		f, err := s.sensor.SetFormat(input.Body.Width, input.Body.Height)
		if err != nil {
			return nil, mapSensorError(err)
		}
		return &models.FormatResponse{Body: formatData(f)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "try-format",
		Method:      http.MethodGet,
		Path:        "/api/sensor/format/try",
		Summary:     "Try Format",
		Description: "Return the format a set request would apply without changing anything",
		Tags:        []string{"format"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.TryFormatRequest) (*models.FormatResponse, error) {
		return &models.FormatResponse{Body: formatData(s.sensor.TryFormat(input.Width, input.Height))}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-power",
		Method:      http.MethodPut,
		Path:        "/api/sensor/power",
		Summary:     "Set Power",
		Description: "Hold or release the host power reference. Streaming holds its own reference.",
		Tags:        []string{"sensor"},
		Errors:      []int{400, 401, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.PowerRequest) (*models.SensorStateResponse, error) {
		if err := s.sensor.SetPower(input.Body.On); err != nil {
			return nil, mapSensorError(err)
		}
		return &models.SensorStateResponse{Body: stateData(s.sensor.State())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-stream",
		Method:      http.MethodPut,
		Path:        "/api/sensor/stream",
		Summary:     "Set Streaming",
		Description: "Start or stop streaming. Starting powers the sensor if needed.",
		Tags:        []string{"sensor"},
		Errors:      []int{400, 401, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.StreamRequest) (*models.SensorStateResponse, error) {
		var err error
		if input.Body.Streaming {
			err = s.sensor.StreamOn()
		} else {
			err = s.sensor.StreamOff()
		}
		if err != nil {
			return nil, mapSensorError(err)
		}
		return &models.SensorStateResponse{Body: stateData(s.sensor.State())}, nil
	})
}

func (s *Server) registerControlRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-controls",
		Method:      http.MethodGet,
		Path:        "/api/sensor/controls",
		Summary:     "List Controls",
		Description: "List every control with its current range and value",
		Tags:        []string{"controls"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.ControlListResponse, error) {
		specs := s.sensor.Controls()
		resp := &models.ControlListResponse{}
		resp.Body.Controls = make([]models.ControlData, 0, len(specs))
		for _, spec := range specs {
			_, v, err := s.sensor.Control(spec.ID)
			if err != nil {
				return nil, mapSensorError(err)
			}
			resp.Body.Controls = append(resp.Body.Controls, models.ControlData{Spec: spec, Value: v})
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-control",
		Method:      http.MethodGet,
		Path:        "/api/sensor/controls/{name}",
		Summary:     "Get Control",
		Description: "Get one control by name",
		Tags:        []string{"controls"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.ControlPath) (*models.ControlResponse, error) {
		id, ok := controls.ByName(input.Name)
		if !ok {
			return nil, huma.Error404NotFound("unknown control " + input.Name)
		}
		spec, v, err := s.sensor.Control(id)
		if err != nil {
			return nil, mapSensorError(err)
		}
		return &models.ControlResponse{Body: models.ControlData{Spec: spec, Value: v}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-control",
		Method:      http.MethodPut,
		Path:        "/api/sensor/controls/{name}",
		Summary:     "Set Control",
		Description: "Set a control. While unpowered the value is applied at the next stream start.",
		Tags:        []string{"controls"},
		Errors:      []int{400, 401, 404, 422, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.ControlSetRequest) (*models.ControlResponse, error) {
		id, ok := controls.ByName(input.Name)
		if !ok {
			return nil, huma.Error404NotFound("unknown control " + input.Name)
		}
		if err := s.sensor.SetControl(id, input.Body.Value); err != nil {
			return nil, mapSensorError(err)
		}
		spec, v, err := s.sensor.Control(id)
		if err != nil {
			return nil, mapSensorError(err)
		}
		return &models.ControlResponse{Body: models.ControlData{Spec: spec, Value: v}}, nil
	})
}

func formatData(f sensor.Format) models.FormatData {
	return models.FormatData{Code: f.Code, Width: f.Width, Height: f.Height}
}

func stateData(st sensor.DeviceState) models.SensorStateData {
	return models.SensorStateData{
		Code:        st.Format.Code,
		Width:       st.Format.Width,
		Height:      st.Format.Height,
		VTS:         st.VTS,
		Streaming:   st.Streaming,
		Powered:     st.Powered,
		FlipBits:    st.FlipBits,
		TestPattern: st.TestPattern,
	}
}

// mapSensorError maps sensor errors to HTTP errors.
func mapSensorError(err error) error {
	var se *sensor.Error
	if !errors.As(err, &se) {
		return huma.Error500InternalServerError("internal server error", err)
	}

	switch se.Kind {
	case sensor.KindState:
		switch {
		case errors.Is(err, controls.ErrUnknown):
			return huma.Error404NotFound(se.Message, err)
		case errors.Is(err, controls.ErrOutOfRange), errors.Is(err, controls.ErrReadOnly):
			return huma.Error422UnprocessableEntity(se.Message, err)
		}
		return huma.Error409Conflict(se.Message, err)
	case sensor.KindIdentity:
		return huma.Error503ServiceUnavailable(se.Message, err)
	case sensor.KindBus, sensor.KindConfig:
		return huma.Error500InternalServerError(se.Message, err)
	default:
		return huma.Error500InternalServerError("internal server error", err)
	}
}
