// Package ipc carries CLI commands to the running daemon over a unix socket
// as newline-delimited JSON.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Commands the daemon answers.
const (
	CommandStatus  = "status"
	CommandLast    = "last"
	CommandPress   = "press"
	CommandRelease = "release"
	CommandToggle  = "toggle"
	CommandCancel  = "cancel"
)

// maxMessageBytes caps one JSON line. "last" replies carry a transcript, so
// this is generous.
const maxMessageBytes = 1 << 20

var errMessageTooLarge = errors.New("message exceeds size limit")

// Request is one command sent to the daemon.
type Request struct {
	Command string `json:"command"`
}

// Response answers a Request. State is the session state at reply time.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failure builds an error response.
func Failure(state string, format string, args ...any) Response {
	return Response{OK: false, State: state, Error: fmt.Sprintf(format, args...)}
}

func writeMessage(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// readMessage decodes the next line from r into v.
func readMessage(r *bufio.Reader, v any) error {
	var line []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return err
		}
		line = append(line, chunk...)
		if len(line) > maxMessageBytes {
			return errMessageTooLarge
		}
		if !isPrefix {
			break
		}
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
