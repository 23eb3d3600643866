package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// board maps a device tree model fragment to its LED names.
type board struct {
	model string
	leds  map[string]string
}

var boards = []board{
	{"NanoPC-T6", map[string]string{"user": "usr_led", "system": "sys_led"}},
	{"Orange Pi", map[string]string{"blue": "blue_led", "green": "green_led"}},
	{"Raspberry Pi", map[string]string{"act": "ACT"}},
}

// New returns a controller for the detected board, or a no-op controller
// when the board has no known LEDs.
func New(logger *slog.Logger) Controller {
	return newFor(detectBoard(deviceTreeModelPath), SysfsRoot, logger)
}

func newFor(model, root string, logger *slog.Logger) Controller {
	logger.Info("Detecting board for LED control", "board_model", model)
	for _, b := range boards {
		if strings.Contains(model, b.model) {
			logger.Info("Using sysfs LED controller", "board", b.model)
			return newSysfs(root, b.leds)
		}
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger)
}

// detectBoard reads the device tree model to identify the board.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	// The model string is NUL terminated.
	return strings.TrimRight(string(data), "\x00")
}
