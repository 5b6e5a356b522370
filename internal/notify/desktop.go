package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Desktop raises notifications through notify-send.
type Desktop struct {
	App  string
	Icon string
}

func (d Desktop) Notify(ctx context.Context, summary, body string) error {
	cmd := exec.CommandContext(ctx, "notify-send", d.args(summary, body)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify-send: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (d Desktop) args(summary, body string) []string {
	var args []string
	if d.App != "" {
		args = append(args, "--app-name="+d.App)
	}
	if d.Icon != "" {
		args = append(args, "--icon="+d.Icon)
	}
	args = append(args, summary)
	if body != "" {
		args = append(args, body)
	}
	return args
}
