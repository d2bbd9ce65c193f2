// Package notify sends desktop notifications through the platform tool.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/foxter/foxter/internal/sysexec"
)

// ErrUnavailable is returned when the platform has no notification tool.
var ErrUnavailable = errors.New("desktop notifications unavailable")

// Notifier delivers notifications on GOOS.
type Notifier struct {
	GOOS   string
	Runner sysexec.Runner
}

// Send shows a notification with the given title and message.
func (n Notifier) Send(ctx context.Context, title, message string) error {
	var err error
	switch n.GOOS {
	case "linux":
		if _, lerr := n.Runner.LookPath("notify-send"); lerr != nil {
			return fmt.Errorf("%w: notify-send not installed", ErrUnavailable)
		}
		_, err = n.Runner.Run(ctx, "notify-send", "--", title, message)
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleString(message), appleString(title))
		_, err = n.Runner.Run(ctx, "osascript", "-e", script)
	case "windows":
		_, err = n.Runner.Run(ctx, "msg", "*", "/TIME:5", title+": "+message)
	default:
		return fmt.Errorf("%w on %s", ErrUnavailable, n.GOOS)
	}
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// appleString quotes s as an AppleScript string literal.
func appleString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// ScanSummary is the message sent when a scan finds threats.
func ScanSummary(suspicious, total int) (title, message string) {
	return "foxter: threats found", fmt.Sprintf("%d suspicious file(s) out of %d scanned", suspicious, total)
}
