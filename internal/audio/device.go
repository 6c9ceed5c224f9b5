// Package audio discovers Pulse input sources and streams 16 kHz mono PCM
// from the one chosen for dictation.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

var (
	ErrNoDevices         = errors.New("no audio input devices found")
	ErrDeviceMuted       = errors.New("audio input is muted")
	ErrDeviceUnavailable = errors.New("audio input is not available")
)

// Pulse port availability values.
const (
	portAvailableUnknown = 0
	portAvailableNo      = 1
	portAvailableYes     = 2
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// usable reports why a device cannot record, or nil.
func (d Device) usable() error {
	switch {
	case !d.Available:
		return fmt.Errorf("%w: %q", ErrDeviceUnavailable, d.ID)
	case d.Muted:
		return fmt.Errorf("%w: %q", ErrDeviceMuted, d.ID)
	}
	return nil
}

// matches reports whether term names the device by id or description.
func (d Device) matches(term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(d.ID), term) ||
		strings.Contains(strings.ToLower(d.Description), term)
}

// Selection is the device to record from. Warning is set when the
// configured input was skipped.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// Describe formats a device for logs and CLI output.
func Describe(device Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	switch {
	case description == "":
		return id
	case id == "":
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("murmur"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns every Pulse input source.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var replies pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &replies); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(replies))
	for _, reply := range replies {
		if reply == nil {
			continue
		}
		devices = append(devices, deviceFromReply(reply, defaultSource.ID()))
	}
	return devices, nil
}

func deviceFromReply(reply *pulseproto.GetSourceInfoReply, defaultID string) Device {
	return Device{
		ID:          reply.SourceName,
		Description: reply.Device,
		State:       sourceState(reply.State),
		Available:   activePortAvailable(reply),
		Muted:       reply.Mute,
		Default:     reply.SourceName == defaultID,
	}
}

// SelectDevice resolves the configured input and fallback against the live
// source list.
func SelectDevice(ctx context.Context, input, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return choose(devices, input, fallback)
}

// choose picks input when it can record, otherwise fallback. An empty or
// "default" preference means the Pulse default source.
func choose(devices []Device, input, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, ErrNoDevices
	}

	primary, err := lookup(devices, input, "audio.input")
	if err != nil {
		return Selection{}, err
	}
	reason := primary.usable()
	if reason == nil {
		return Selection{Device: *primary}, nil
	}

	secondary, err := lookup(devices, fallback, "audio.fallback")
	if err != nil {
		return Selection{}, fmt.Errorf("%w; no usable fallback: %w", reason, err)
	}
	if err := secondary.usable(); err != nil {
		return Selection{}, fmt.Errorf("%w; fallback: %w", reason, err)
	}

	return Selection{
		Device:   *secondary,
		Warning:  fmt.Sprintf("%v; recording from %q instead", reason, secondary.ID),
		Fallback: secondary.ID != primary.ID,
	}, nil
}

func lookup(devices []Device, preference, field string) (*Device, error) {
	term := strings.ToLower(strings.TrimSpace(preference))
	byDefault := term == "" || term == "default"

	for i := range devices {
		if byDefault && devices[i].Default {
			return &devices[i], nil
		}
		if !byDefault && devices[i].matches(term) {
			return &devices[i], nil
		}
	}
	if byDefault {
		return nil, errors.New("default audio source is unavailable")
	}
	return nil, fmt.Errorf("%s %q did not match any device", field, preference)
}

func sourceState(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	}
	return fmt.Sprintf("unknown(%d)", state)
}

// activePortAvailable treats sources without ports, and ports of unknown
// availability, as available.
func activePortAvailable(reply *pulseproto.GetSourceInfoReply) bool {
	if reply == nil {
		return false
	}
	for _, port := range reply.Ports {
		if port.Name == reply.ActivePortName {
			return port.Available != portAvailableNo
		}
	}
	return true
}
