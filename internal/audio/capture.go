package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Capture format: 16 kHz mono signed 16-bit little-endian PCM.
const (
	SampleRate = 16000
	Channels   = 1
	BitDepth   = 16

	chunkSizeBytes = SampleRate * Channels * (BitDepth / 8) / 50 // 20ms
)

// chunker cuts an arbitrary byte stream into fixed-size chunks.
type chunker struct {
	size    int
	pending []byte
}

func (c *chunker) push(b []byte) [][]byte {
	c.pending = append(c.pending, b...)
	var out [][]byte
	for len(c.pending) >= c.size {
		out = append(out, append([]byte(nil), c.pending[:c.size]...))
		c.pending = c.pending[c.size:]
	}
	return out
}

// flush returns the short tail, if any.
func (c *chunker) flush() []byte {
	if len(c.pending) == 0 {
		return nil
	}
	tail := append([]byte(nil), c.pending...)
	c.pending = nil
	return tail
}

// Capture is one running Pulse record stream. Chunks closes after Stop.
type Capture struct {
	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	stopCh chan struct{}

	mu       sync.Mutex
	split    chunker
	stopped  bool
	inflight sync.WaitGroup
}

func newCapture() *Capture {
	return &Capture{
		chunks: make(chan []byte, 128),
		stopCh: make(chan struct{}),
		split:  chunker{size: chunkSizeBytes},
	}
}

// StartCapture opens a record stream on device. Callers must drain Chunks
// until it closes; cancelling ctx stops the stream.
func StartCapture(ctx context.Context, device Device) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	c := newCapture()
	c.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(pcmSink(c.write), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("murmur dictation"),
	)
	if err != nil {
		_ = c.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	c.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop()
		case <-c.stopCh:
		}
	}()
	return c, nil
}

// Chunks yields 20ms PCM chunks; the last one may be shorter.
func (c *Capture) Chunks() <-chan []byte {
	return c.chunks
}

// Stop ends the stream, emits any buffered tail and closes Chunks. It is
// safe to call more than once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
	c.inflight.Wait()

	c.mu.Lock()
	tail := c.split.flush()
	c.mu.Unlock()
	if tail != nil {
		select {
		case c.chunks <- tail:
		default:
		}
	}

	close(c.chunks)
	return nil
}

// write receives Pulse frames. It returns io.EOF once stopped so the pulse
// writer ends the stream.
func (c *Capture) write(frames []byte) (int, error) {
	if len(frames) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under mu so Stop's Wait cannot race it.
	c.inflight.Add(1)
	ready := c.split.push(frames)
	c.mu.Unlock()
	defer c.inflight.Done()

	for _, chunk := range ready {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.chunks <- chunk:
		}
	}
	return len(frames), nil
}

type pcmSink func([]byte) (int, error)

func (f pcmSink) Write(b []byte) (int, error) {
	return f(b)
}
