// Package led drives a board status LED from the sensor's power and
// streaming state.
package led

// Controller abstracts LED hardware control across different SBC boards.
// Implementations handle board-specific LED naming and capabilities.
type Controller interface {
	// Set controls an LED's state and optional pattern.
	//   ledType: board-specific LED identifier (e.g., "user", "system", "act")
	//   enabled: whether the LED should be on or off
	//   pattern: "solid", "blink" or "heartbeat"; empty leaves the trigger alone
	Set(ledType string, enabled bool, pattern string) error

	// Available returns the list of LED types supported by this controller.
	Available() []string

	// Patterns returns the list of patterns supported by this controller.
	Patterns() []string
}
