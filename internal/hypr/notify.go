package hypr

import (
	"context"
	"strconv"
	"strings"
)

// Icon is a Hyprland notification icon id.
type Icon int

const (
	IconNone    Icon = -1
	IconWarning Icon = 0
	IconInfo    Icon = 1
	IconHint    Icon = 2
	IconError   Icon = 3
	IconOK      Icon = 5
)

const defaultColor = "rgb(89b4fa)"

// Notification is one overlay message.
type Notification struct {
	Icon      Icon
	TimeoutMS int
	// Color is a Hyprland color such as "rgb(f38ba8)".
	Color string
	Text  string
}

// Notify shows n on the Hyprland overlay.
func Notify(ctx context.Context, n Notification) error {
	color := strings.TrimSpace(n.Color)
	if color == "" {
		color = defaultColor
	}
	return dispatch(ctx, "notify",
		strconv.Itoa(int(n.Icon)),
		strconv.Itoa(n.TimeoutMS),
		color,
		n.Text,
	)
}

// DismissNotify clears every overlay message.
func DismissNotify(ctx context.Context) error {
	return dispatch(ctx, "dismissnotify")
}
