package hypr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ActiveWindow is the focused client as reported by `hyprctl -j activewindow`.
type ActiveWindow struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
}

// QueryActiveWindow returns the focused client. A window without an address
// is treated as no focus.
func QueryActiveWindow(ctx context.Context) (ActiveWindow, error) {
	out, err := ctl(ctx, "-j", "activewindow")
	if err != nil {
		return ActiveWindow{}, err
	}

	var window ActiveWindow
	if err := json.Unmarshal(out, &window); err != nil {
		return ActiveWindow{}, fmt.Errorf("decode hyprctl activewindow json: %w", err)
	}
	window.Address = strings.TrimSpace(window.Address)
	window.Class = strings.TrimSpace(window.Class)
	window.InitialClass = strings.TrimSpace(window.InitialClass)
	if window.Address == "" {
		return ActiveWindow{}, errors.New("hyprctl activewindow returned empty address")
	}
	return window, nil
}

// WaitActiveWindow polls QueryActiveWindow up to attempts times.
func WaitActiveWindow(ctx context.Context, attempts int, delay time.Duration) (ActiveWindow, error) {
	attempts = max(attempts, 1)

	var lastErr error
	for i := range attempts {
		window, err := QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ActiveWindow{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return ActiveWindow{}, fmt.Errorf("resolve active window: %w", lastErr)
}

// Paste sends shortcut to the focused window, retrying the focus query while
// focus settles after the hotkey release.
func Paste(ctx context.Context, shortcut string) error {
	window, err := WaitActiveWindow(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return err
	}

	payload, err := TargetedShortcut(shortcut, window.Address)
	if err != nil {
		return err
	}
	return SendShortcut(ctx, payload)
}

// TargetedShortcut builds a sendshortcut payload pinned to one window.
func TargetedShortcut(shortcut, windowAddress string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return "", errors.New("paste shortcut cannot be empty")
	}
	address := strings.TrimSpace(windowAddress)
	if address == "" {
		return "", errors.New("active window address is required")
	}
	return shortcut + ",address:" + address, nil
}

// SendShortcut dispatches a literal sendshortcut payload.
func SendShortcut(ctx context.Context, payload string) error {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return errors.New("sendshortcut requires a non-empty payload")
	}
	return dispatch(ctx, "sendshortcut", payload)
}
