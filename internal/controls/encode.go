package controls

// Shutter returns the SHS1 value for exposure e (in lines) within a frame
// of vts lines. The register counts down from the frame end.
func Shutter(vts uint32, e int64) uint32 {
	return vts - uint32(e) - 1
}

// ShutterBytes splits an SHS1 value into its three register fields. The
// high field is four bits wide.
func ShutterBytes(shs1 uint32) (high, mid, low uint8) {
	return uint8((shs1 >> 16) & 0x0f), uint8((shs1 >> 8) & 0xff), uint8(shs1 & 0xff)
}

// VTSBytes splits a frame length into its three register fields. The
// high field is two bits wide.
func VTSBytes(vts uint32) (high, mid, low uint8) {
	return uint8((vts >> 16) & 0x03), uint8((vts >> 8) & 0xff), uint8(vts & 0xff)
}

// TestPatternValue is the pattern register value enabling bar pattern p (1..15).
func TestPatternValue(p int64) uint32 {
	return uint32(p-1)<<4 | testPatternEnable
}
