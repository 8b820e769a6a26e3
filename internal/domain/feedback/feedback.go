// Package feedback defines how a page surfaces an upload message.
package feedback

import "fmt"

// Mode is a feedback presentation.
type Mode string

const (
	// Alert shows the message in a modal dialog.
	Alert Mode = "alert"
	// Inline writes the message into a text region of the page.
	Inline Mode = "inline"
)

// Parse converts a configuration value into a Mode.
func Parse(s string) (Mode, error) {
	switch Mode(s) {
	case Alert, Inline:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown feedback mode %q (want %q or %q)", s, Alert, Inline)
	}
}
