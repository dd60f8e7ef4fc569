// Package clipboard copies text to the system clipboard.
package clipboard

import (
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"
)

// Terminal receives the OSC 52 fallback sequence when no clipboard tool is
// installed, e.g. over SSH.
var Terminal io.Writer = os.Stderr

// tool returns the clipboard command for this platform, or nil.
func tool(ctx context.Context) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("pbcopy"); err == nil {
			return exec.CommandContext(ctx, "pbcopy")
		}
	case "windows":
		return exec.CommandContext(ctx, "cmd", "/c", "clip")
	default:
		if _, err := exec.LookPath("wl-copy"); err == nil && os.Getenv("WAYLAND_DISPLAY") != "" {
			return exec.CommandContext(ctx, "wl-copy")
		}
		if _, err := exec.LookPath("xclip"); err == nil {
			return exec.CommandContext(ctx, "xclip", "-selection", "clipboard")
		}
		if _, err := exec.LookPath("xsel"); err == nil {
			return exec.CommandContext(ctx, "xsel", "--clipboard", "--input")
		}
	}
	return nil
}

// Write copies text with the platform tool, falling back to an OSC 52
// escape sequence the terminal may honor.
func Write(ctx context.Context, text string) error {
	if cmd := tool(ctx); cmd != nil {
		cmd.Stdin = strings.NewReader(text)
		return cmd.Run()
	}
	_, err := osc52.New(text).WriteTo(Terminal)
	return err
}

// Native reports whether a clipboard tool is installed.
func Native() bool {
	return tool(context.Background()) != nil
}
