// Package hypr wraps the hyprctl calls murmur needs: focus queries, paste
// shortcuts and on-screen notifications.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Version returns the first line of `hyprctl version`. Doctor uses it to tell
// whether a Hyprland session is reachable.
func Version(ctx context.Context) (string, error) {
	out, err := ctl(ctx, "version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

// dispatch runs `hyprctl --quiet dispatch <name> args...`.
func dispatch(ctx context.Context, name string, args ...string) error {
	_, err := ctl(ctx, append([]string{"--quiet", "dispatch", name}, args...)...)
	return err
}

func ctl(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err == nil {
		return out, nil
	}
	if detail := strings.TrimSpace(string(out)); detail != "" {
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, detail)
	}
	return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
}
