// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/sensornode/internal/controls"
	"github.com/smazurov/sensornode/internal/modes"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version       string `json:"version" example:"1.0.0" doc:"Application version"`
	DriverVersion string `json:"driver_version" example:"0.01.06" doc:"Sensor driver version"`
	GitCommit     string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate     string `json:"build_date" example:"2026-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID       string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion     string `json:"go_version" example:"go1.24.0" doc:"Go runtime version"`
	Compiler      string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform      string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Sensor identity models
type SensorInfoData struct {
	EntityName string `json:"entity_name" example:"m00_b_imx290 1-001a" doc:"Media entity name"`
	Sensor     string `json:"sensor" example:"imx290" doc:"Sensor model"`
	Module     string `json:"module" example:"CMK-OT1522-FG3" doc:"Camera module name"`
	Lens       string `json:"lens" example:"CS-P1150-IRC-8M-FAU" doc:"Lens name"`
	BusType    string `json:"bus_type" example:"csi2-dphy" doc:"Data bus type"`
	Lanes      int    `json:"lanes" example:"2" doc:"Number of data lanes"`
	LinkFreq   int64  `json:"link_frequency" example:"222750000" doc:"Link frequency in Hz"`
}

type SensorInfoResponse struct {
	Body SensorInfoData
}

// Sensor state models
type SensorStateData struct {
	Width       uint32 `json:"width" example:"1948" doc:"Active frame width"`
	Height      uint32 `json:"height" example:"1097" doc:"Active frame height"`
	Code        uint32 `json:"code" example:"12306" doc:"Media bus pixel code"`
	VTS         uint32 `json:"vts" example:"1125" doc:"Frame length in lines"`
	Streaming   bool   `json:"streaming" doc:"Whether the sensor is streaming"`
	Powered     bool   `json:"powered" doc:"Whether the sensor is powered"`
	FlipBits    uint8  `json:"flip_bits" example:"0" doc:"Mirror (bit 1) and flip (bit 0) register bits"`
	TestPattern int64  `json:"test_pattern" example:"0" doc:"Active test pattern index"`
}

type SensorStateResponse struct {
	Body SensorStateData
}

// Format models
type FormatData struct {
	Code   uint32 `json:"code" example:"12306" doc:"Media bus pixel code"`
	Width  uint32 `json:"width" example:"1948" doc:"Frame width in pixels"`
	Height uint32 `json:"height" example:"1097" doc:"Frame height in lines"`
}

type FormatResponse struct {
	Body FormatData
}

type FormatRequest struct {
	Body struct {
		Width  uint32 `json:"width" minimum:"1" example:"1920" doc:"Requested frame width"`
		Height uint32 `json:"height" minimum:"1" example:"1080" doc:"Requested frame height"`
	}
}

type TryFormatRequest struct {
	Width  uint32 `query:"width" minimum:"1" example:"1920" doc:"Requested frame width"`
	Height uint32 `query:"height" minimum:"1" example:"1080" doc:"Requested frame height"`
}

type ModesData struct {
	Codes     []uint32         `json:"codes" doc:"Supported media bus pixel codes"`
	Sizes     []modes.Size     `json:"sizes" doc:"Frame sizes of the first pixel code"`
	Intervals []modes.Interval `json:"intervals" doc:"Frame interval of every mode"`
	Crop      CropData         `json:"crop" doc:"Crop window of the active mode"`
}

type CropData struct {
	Left   uint32 `json:"left" example:"12"`
	Top    uint32 `json:"top" example:"8"`
	Width  uint32 `json:"width" example:"1920"`
	Height uint32 `json:"height" example:"1080"`
}

type ModesResponse struct {
	Body ModesData
}

// Control models
type ControlData struct {
	controls.Spec
	Value int64 `json:"value" example:"1022" doc:"Current value"`
}

type ControlListResponse struct {
	Body struct {
		Controls []ControlData `json:"controls" doc:"All sensor controls in creation order"`
	}
}

type ControlResponse struct {
	Body ControlData
}

type ControlPath struct {
	Name string `path:"name" example:"exposure" doc:"Control name"`
}

type ControlSetRequest struct {
	Name string `path:"name" example:"exposure" doc:"Control name"`
	Body struct {
		Value int64 `json:"value" example:"1022" doc:"New control value"`
	}
}

// Power and stream models
type PowerRequest struct {
	Body struct {
		On bool `json:"on" doc:"Hold (true) or release (false) the host power reference"`
	}
}

type StreamRequest struct {
	Body struct {
		Streaming bool `json:"streaming" doc:"Start (true) or stop (false) streaming"`
	}
}

// Preset models
type PresetData struct {
	Name        string           `json:"name" example:"night" doc:"Preset name"`
	Description string           `json:"description,omitempty" doc:"Preset description"`
	Controls    map[string]int64 `json:"controls" doc:"Control values keyed by control name"`
	Active      bool             `json:"active" doc:"Whether this is the active preset"`
}

type PresetListResponse struct {
	Body struct {
		Presets []PresetData `json:"presets" doc:"Stored presets"`
		Active  string       `json:"active,omitempty" example:"night" doc:"Active preset name"`
	}
}

type PresetResponse struct {
	Body PresetData
}

type PresetPath struct {
	Name string `path:"name" example:"night" doc:"Preset name"`
}

type PresetPutRequest struct {
	Name string `path:"name" example:"night" doc:"Preset name"`
	Body struct {
		Description string           `json:"description,omitempty" doc:"Preset description"`
		Controls    map[string]int64 `json:"controls" doc:"Control values keyed by control name"`
	}
}

type PresetApplyResponse struct {
	Body struct {
		Preset string   `json:"preset" example:"night" doc:"Applied preset"`
		Failed []string `json:"failed,omitempty" doc:"Controls that could not be applied"`
	}
}

// Log level models
type LogLevelsResponse struct {
	Body struct {
		Levels map[string]string `json:"levels" doc:"Log level per module"`
	}
}

type LogLevelRequest struct {
	Module string `path:"module" example:"controls" doc:"Logger module"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New log level"`
	}
}
