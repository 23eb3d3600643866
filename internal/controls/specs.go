package controls

// ID is a V4L2 control identifier.
type ID uint32

// Control identifiers.
const (
	Exposure     ID = 0x00980911
	DigitalGain  ID = 0x00980913
	HFlip        ID = 0x00980914
	VFlip        ID = 0x00980915
	VBlank       ID = 0x009e0901
	HBlank       ID = 0x009e0902
	AnalogueGain ID = 0x009e0903
	LinkFreq     ID = 0x009f0901
	PixelRate    ID = 0x009f0902
	TestPattern  ID = 0x009f0903
)

// Kind describes how a control's value is interpreted.
type Kind string

// Control kinds.
const (
	KindInteger     Kind = "integer"
	KindBoolean     Kind = "boolean"
	KindMenu        Kind = "menu"
	KindIntegerMenu Kind = "integer_menu"
)

// Spec describes one control and its current valid range.
type Spec struct {
	ID       ID       `json:"id"`
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Minimum  int64    `json:"minimum"`
	Maximum  int64    `json:"maximum"`
	Step     int64    `json:"step"`
	Default  int64    `json:"default"`
	ReadOnly bool     `json:"read_only"`
	Menu     []string `json:"menu,omitempty"`
	IntMenu  []int64  `json:"int_menu,omitempty"`
}

// Sensor limits.
const (
	ExposureMin  = 2
	ExposureStep = 1
	VTSMax       = 0x7fff

	GainMin     = 0x00
	GainMax     = 0x64
	GainDefault = 0x00

	LinkFrequency = 222750000
	lanes         = 2
	bitsPerSample = 12
	// PixelRateHz is link frequency * 2 (DDR) * lanes / bits per sample.
	PixelRateHz = LinkFrequency * 2 * lanes / bitsPerSample
)

// Register map.
const (
	regShutterH   uint16 = 0x3022
	regShutterM   uint16 = 0x3021
	regShutterL   uint16 = 0x3020
	regVTSH       uint16 = 0x301a
	regVTSM       uint16 = 0x3019
	regVTSL       uint16 = 0x3018
	regGain       uint16 = 0x3014
	regFlip       uint16 = 0x3007
	regTestPat    uint16 = 0x308c
	regBlackLevel uint16 = 0x300a
	regAuxTest    uint16 = 0x300e
	regGroupHold  uint16 = 0x3001

	mirrorBit         = 1 << 1
	flipBit           = 1 << 0
	testPatternEnable = 1 << 0

	groupHoldStart = 0x01
	groupHoldEnd   = 0x00

	blackLevelTest   = 0x00
	blackLevelNormal = 0x3c
	auxTest          = 0x00
	auxNormal        = 0x01
)

// TestPatternMenu names the pattern indices; 0 disables the generator.
var TestPatternMenu = []string{
	"Disabled",
	"Bar Type 1",
	"Bar Type 2",
	"Bar Type 3",
	"Bar Type 4",
	"Bar Type 5",
	"Bar Type 6",
	"Bar Type 7",
	"Bar Type 8",
	"Bar Type 9",
	"Bar Type 10",
	"Bar Type 11",
	"Bar Type 12",
	"Bar Type 13",
	"Bar Type 14",
	"Bar Type 15",
}

// names maps control ids to their stable API names.
var names = map[ID]string{
	Exposure:     "exposure",
	DigitalGain:  "digital_gain",
	HFlip:        "horizontal_flip",
	VFlip:        "vertical_flip",
	VBlank:       "vertical_blanking",
	HBlank:       "horizontal_blanking",
	AnalogueGain: "analogue_gain",
	LinkFreq:     "link_frequency",
	PixelRate:    "pixel_rate",
	TestPattern:  "test_pattern",
}

// order is creation order; replay and listing follow it. Vertical
// blanking precedes exposure so the shutter is encoded against the
// final frame length.
var order = []ID{
	LinkFreq,
	PixelRate,
	HBlank,
	VBlank,
	Exposure,
	AnalogueGain,
	DigitalGain,
	TestPattern,
	HFlip,
	VFlip,
}

// Name returns the API name of id, or "" when unknown.
func Name(id ID) string {
	return names[id]
}

// ByName resolves an API name to its id.
func ByName(name string) (ID, bool) {
	for id, n := range names {
		if n == name {
			return id, true
		}
	}
	return 0, false
}
