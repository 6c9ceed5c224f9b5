package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/rbright/murmur/internal/hypr"
)

type tone int

const (
	toneInfo tone = iota
	toneProgress
	toneError
)

// Surface is one place indicator text can be shown.
type Surface interface {
	Show(ctx context.Context, t tone, timeoutMS int, text string) error
	Dismiss(ctx context.Context) error
}

// hyprSurface uses Hyprland's built-in notification overlay.
type hyprSurface struct{}

func (hyprSurface) Show(ctx context.Context, t tone, timeoutMS int, text string) error {
	n := hypr.Notification{Icon: hypr.IconInfo, TimeoutMS: timeoutMS, Color: "rgb(89b4fa)", Text: text}
	switch t {
	case toneProgress:
		n.Color = "rgb(cba6f7)"
	case toneError:
		n.Icon, n.Color = hypr.IconError, "rgb(f38ba8)"
	}
	return hypr.Notify(ctx, n)
}

func (hyprSurface) Dismiss(ctx context.Context) error {
	return hypr.DismissNotify(ctx)
}

// desktopSurface sends replaceable freedesktop notifications so status
// updates reuse one popup.
type desktopSurface struct {
	appName string

	mu sync.Mutex
	id uint32
}

func newDesktopSurface(appName string) *desktopSurface {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		appName = "murmur-indicator"
	}
	return &desktopSurface{appName: appName}
}

func (d *desktopSurface) Show(ctx context.Context, _ tone, timeoutMS int, text string) error {
	d.mu.Lock()
	replaceID := d.id
	d.mu.Unlock()

	id, err := desktopNotify(ctx, d.appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.id = id
	d.mu.Unlock()
	return nil
}

func (d *desktopSurface) Dismiss(ctx context.Context) error {
	d.mu.Lock()
	id := d.id
	d.id = 0
	d.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// systemSurface goes through beeep, which works without Hyprland or busctl.
// Only errors are shown; status popups would pile up without a replace id.
type systemSurface struct {
	notify func(title, message string) error
}

func newSystemSurface() systemSurface {
	return systemSurface{notify: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

func (s systemSurface) Show(_ context.Context, t tone, _ int, text string) error {
	if t != toneError {
		return nil
	}
	return s.notify("murmur", text)
}

func (systemSurface) Dismiss(context.Context) error { return nil }

// desktopNotify sends a freedesktop notification over DBus via busctl.
// It returns the notification ID assigned by the server.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error) {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		appName,
		fmt.Sprintf("%d", replaceID),
		"",
		summary,
		"",
		"0", // actions array length
		"0", // hints map length
		fmt.Sprintf("%d", timeoutMS),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return 0, fmt.Errorf("desktop notify failed: %w", err)
		}
		return 0, fmt.Errorf("desktop notify failed: %w (%s)", err, trimmed)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, parseErr := strconv.ParseUint(fields[1], 10, 32)
	if parseErr != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], parseErr)
	}
	return uint32(value), nil
}

// desktopDismiss requests explicit close by notification ID.
func desktopDismiss(ctx context.Context, id uint32) error {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"CloseNotification",
		"u",
		fmt.Sprintf("%d", id),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("desktop dismiss failed: %w", err)
		}
		return fmt.Errorf("desktop dismiss failed: %w (%s)", err, trimmed)
	}

	return nil
}
