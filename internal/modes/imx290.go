package modes

import "github.com/smazurov/sensornode/internal/bus"

// Global is written once after power-up, before any mode program.
var Global = bus.Program{
	{Addr: bus.Sentinel},
}

// linear1920x1080 configures 12-bit linear readout over MIPI from a
// 37.125 MHz input clock at 30 fps.
var linear1920x1080 = bus.Program{
	{Addr: 0x301a, Val: 0x00},
	{Addr: 0x303a, Val: 0x0c},
	{Addr: 0x3040, Val: 0x00},
	{Addr: 0x3041, Val: 0x00},
	{Addr: 0x303c, Val: 0x00},
	{Addr: 0x303d, Val: 0x00},
	{Addr: 0x3042, Val: 0x9c},
	{Addr: 0x3043, Val: 0x07},
	{Addr: 0x303e, Val: 0x49},
	{Addr: 0x303f, Val: 0x04},
	{Addr: 0x304b, Val: 0x0a},
	{Addr: 0x300f, Val: 0x00},
	{Addr: 0x3010, Val: 0x21},
	{Addr: 0x3012, Val: 0x64},
	{Addr: 0x3016, Val: 0x09},
	{Addr: 0x3070, Val: 0x02},
	{Addr: 0x3071, Val: 0x11},
	{Addr: 0x309b, Val: 0x10},
	{Addr: 0x309c, Val: 0x22},
	{Addr: 0x30a2, Val: 0x02},
	{Addr: 0x30a6, Val: 0x20},
	{Addr: 0x30a8, Val: 0x20},
	{Addr: 0x30aa, Val: 0x20},
	{Addr: 0x30ac, Val: 0x20},
	{Addr: 0x30b0, Val: 0x43},
	{Addr: 0x3119, Val: 0x9e},
	{Addr: 0x311c, Val: 0x1e},
	{Addr: 0x311e, Val: 0x08},
	{Addr: 0x3128, Val: 0x05},
	{Addr: 0x313d, Val: 0x83},
	{Addr: 0x3150, Val: 0x03},
	{Addr: 0x317e, Val: 0x00},
	{Addr: 0x32b8, Val: 0x50},
	{Addr: 0x32b9, Val: 0x10},
	{Addr: 0x32ba, Val: 0x00},
	{Addr: 0x32bb, Val: 0x04},
	{Addr: 0x32c8, Val: 0x50},
	{Addr: 0x32c9, Val: 0x10},
	{Addr: 0x32ca, Val: 0x00},
	{Addr: 0x32cb, Val: 0x04},
	{Addr: 0x332c, Val: 0xd3},
	{Addr: 0x332d, Val: 0x10},
	{Addr: 0x332e, Val: 0x0d},
	{Addr: 0x3358, Val: 0x06},
	{Addr: 0x3359, Val: 0xe1},
	{Addr: 0x335a, Val: 0x11},
	{Addr: 0x3360, Val: 0x1e},
	{Addr: 0x3361, Val: 0x61},
	{Addr: 0x3362, Val: 0x10},
	{Addr: 0x33b0, Val: 0x50},
	{Addr: 0x33b2, Val: 0x1a},
	{Addr: 0x33b3, Val: 0x04},

	{Addr: 0x301c, Val: 0x30},
	{Addr: 0x301d, Val: 0x11},
	{Addr: 0x305c, Val: 0x18},
	{Addr: 0x305d, Val: 0x03},
	{Addr: 0x305e, Val: 0x20},
	{Addr: 0x305f, Val: 0x01},
	{Addr: 0x315e, Val: 0x1a},
	{Addr: 0x3164, Val: 0x1a},
	{Addr: 0x3444, Val: 0x20},
	{Addr: 0x3445, Val: 0x25},
	{Addr: 0x3480, Val: 0x49},

	{Addr: 0x3009, Val: 0x02},
	{Addr: 0x303a, Val: 0x0c},
	{Addr: 0x3414, Val: 0x0a},
	{Addr: 0x3472, Val: 0x9c},
	{Addr: 0x3473, Val: 0x07},
	{Addr: 0x3418, Val: 0x49},
	{Addr: 0x3419, Val: 0x04},
	{Addr: 0x3012, Val: 0x64},
	{Addr: 0x3013, Val: 0x00},

	{Addr: 0x3405, Val: 0x10},
	{Addr: 0x3407, Val: 0x01},
	{Addr: 0x3443, Val: 0x01},
	{Addr: 0x3446, Val: 0x57},
	{Addr: 0x3447, Val: 0x00},
	{Addr: 0x3448, Val: 0x37},
	{Addr: 0x3449, Val: 0x00},
	{Addr: 0x344a, Val: 0x1f},
	{Addr: 0x344b, Val: 0x00},
	{Addr: 0x344c, Val: 0x1f},
	{Addr: 0x344d, Val: 0x00},
	{Addr: 0x344e, Val: 0x1f},
	{Addr: 0x344f, Val: 0x00},
	{Addr: 0x3450, Val: 0x77},
	{Addr: 0x3451, Val: 0x00},
	{Addr: 0x3452, Val: 0x1f},
	{Addr: 0x3453, Val: 0x00},
	{Addr: 0x3454, Val: 0x17},
	{Addr: 0x3455, Val: 0x00},

	{Addr: 0x3005, Val: 0x01},
	{Addr: 0x3046, Val: 0x01},
	{Addr: 0x3129, Val: 0x00},
	{Addr: 0x317c, Val: 0x00},
	{Addr: 0x31ec, Val: 0x0e},
	{Addr: 0x3441, Val: 0x0c},
	{Addr: 0x3442, Val: 0x0c},
	{Addr: 0x300a, Val: 0xf0},
	{Addr: 0x300b, Val: 0x00},
	{Addr: bus.Sentinel},
}

// IMX290 is the supported mode table.
var IMX290 = MustTable(
	Mode{
		Code:   MediaBusFmtSRGGB12,
		Width:  1948,
		Height: 1097,
		MaxFrameInterval: Rational{
			Numerator:   10000,
			Denominator: 300000,
		},
		ExposureDefault: 0x03fe,
		HTSDefault:      0x1130,
		VTSDefault:      0x0465,
		Program:         linear1920x1080,
	},
)
