package events

// Event type constants for kelindar/event.
const (
	TypeFormatChanged uint32 = iota + 1
	TypeControlChanged
	TypeStreamStateChanged
	TypePowerStateChanged
	TypePresetApplied
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// FormatChangedEvent is published when the active sensor mode changes.
type FormatChangedEvent struct {
	Code      uint32 `json:"code" example:"12306" doc:"Media bus pixel code"`
	Width     uint32 `json:"width" example:"1948" doc:"Frame width in pixels"`
	Height    uint32 `json:"height" example:"1097" doc:"Frame height in lines"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FormatChangedEvent.
func (e FormatChangedEvent) Type() uint32 { return TypeFormatChanged }

// ControlChangedEvent is published after a control value is committed.
type ControlChangedEvent struct {
	Control   string `json:"control" example:"exposure" doc:"Control name"`
	Value     int64  `json:"value" example:"1022" doc:"New value"`
	Applied   bool   `json:"applied" doc:"Whether the value reached the sensor registers"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ControlChangedEvent.
func (e ControlChangedEvent) Type() uint32 { return TypeControlChanged }

// StreamStateChangedEvent is published when the sensor starts or stops
// streaming. Used for LED control and other reactive subsystems.
type StreamStateChangedEvent struct {
	Sensor    string `json:"sensor" example:"m00_b_imx290 1-001a" doc:"Sensor entity name"`
	Streaming bool   `json:"streaming" example:"true" doc:"Whether the sensor is streaming"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamStateChangedEvent.
func (e StreamStateChangedEvent) Type() uint32 { return TypeStreamStateChanged }

// PowerStateChangedEvent is published on every physical power transition.
type PowerStateChangedEvent struct {
	Sensor    string `json:"sensor" example:"m00_b_imx290 1-001a" doc:"Sensor entity name"`
	Powered   bool   `json:"powered" doc:"Whether the sensor is powered"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PowerStateChangedEvent.
func (e PowerStateChangedEvent) Type() uint32 { return TypePowerStateChanged }

// PresetAppliedEvent is published when a stored preset is applied.
type PresetAppliedEvent struct {
	Preset    string   `json:"preset" example:"night" doc:"Preset name"`
	Failed    []string `json:"failed,omitempty" doc:"Controls that could not be applied"`
	Timestamp string   `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PresetAppliedEvent.
func (e PresetAppliedEvent) Type() uint32 { return TypePresetApplied }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2026-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"controls" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
