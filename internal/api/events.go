package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/sensornode/internal/api/models"
	"github.com/smazurov/sensornode/internal/events"
)

// registerSSERoutes registers the sensor event stream.
func (s *Server) registerSSERoutes() {
	if s.eventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time format, control, power, stream and preset events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"format-changed":       events.FormatChangedEvent{},
		"control-changed":      events.ControlChangedEvent{},
		"stream-state-changed": events.StreamStateChangedEvent{},
		"power-state-changed":  events.PowerStateChangedEvent{},
		"preset-applied":       events.PresetAppliedEvent{},
		"sensor-state":         sensorSnapshot{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.FormatChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ControlChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PowerStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PresetAppliedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// The first message is the current state so clients need no
		// separate request.
		if err := send.Data(sensorSnapshot{SensorStateData: stateData(s.sensor.State())}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

// sensorSnapshot is the initial message of an event stream.
type sensorSnapshot struct {
	models.SensorStateData
}
