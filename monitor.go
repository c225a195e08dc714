/*
 * VE.Direct Library in Go
 *
 * This file is part of govedirect, a Go decoder for the Victron VE.Direct
 * serial protocol used by solar charge controllers and battery monitors.
 *
 * Features:
 * - TEXT frame decoding with modulo-256 checksum validation
 * - HEX frame framing, checksum validation and handler dispatch
 * - Published table of the latest value of every field
 * - Designed for serial communication
 *
 * License: MIT License
 * Author: Adrian Shajkofci, 2024
 */

package vedirect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ashajkofci/govedirect/internal/logging"
)

// Monitor defaults
const (
	ReadBufferSize = 128
	MaxRetries     = 1000
	RetryDelay     = 10 * time.Second
)

// Transport is the byte link a Monitor reads from. Only Read is required.
type Transport struct {
	Read         func([]byte) (int, error)
	Write        func([]byte) (int, error)
	Close        func() error
	ProductID    string
	VendorID     string
	Manufacturer string
	Product      string
	SerialNumber string
	PortName     string
}

// ReaderTransport wraps r, e.g. a capture file, as a read-only transport.
func ReaderTransport(name string, r io.Reader) *Transport {
	t := &Transport{Read: r.Read, PortName: name}
	if c, ok := r.(io.Closer); ok {
		t.Close = c.Close
	}
	return t
}

// Monitor drives a Decoder from a Transport and publishes its table to
// readers on other goroutines.
type Monitor struct {
	// mu serialises every access to decoder. HEX handlers run with mu held
	// and must not call back into the Monitor.
	mu          sync.Mutex
	decoder     *Decoder
	subscribers []func([]Field)

	writeMu   sync.Mutex
	transport *Transport

	reconnect  func() (*Transport, error)
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithDecoderOptions passes opts to the decoder the Monitor creates.
func WithDecoderOptions(opts ...Option) MonitorOption {
	return func(m *Monitor) {
		m.decoder = NewDecoder(opts...)
	}
}

// WithReconnect makes Run reopen the link with dial after a read error
// instead of returning.
func WithReconnect(dial func() (*Transport, error)) MonitorOption {
	return func(m *Monitor) {
		m.reconnect = dial
	}
}

// WithRetry bounds the reconnection attempts.
func WithRetry(maxRetries int, delay time.Duration) MonitorOption {
	return func(m *Monitor) {
		if maxRetries > 0 {
			m.maxRetries = maxRetries
		}
		if delay > 0 {
			m.retryDelay = delay
		}
	}
}

// WithMonitorLogger sets the logger for link events.
func WithMonitorLogger(logger *zap.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMonitor creates a monitor reading from transport.
func NewMonitor(transport *Transport, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		transport:  transport,
		maxRetries: MaxRetries,
		retryDelay: RetryDelay,
		logger:     logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.decoder == nil {
		m.decoder = NewDecoder(WithLogger(m.logger))
	}
	m.logger.Info("VE.Direct monitor initialized", zap.String("port", m.portName()))
	return m
}

// Run reads from the transport until ctx is done, feeding every byte to the
// decoder. A read error ends the run unless a reconnect function was given;
// io.EOF on a transport without reconnection is a normal end.
func (m *Monitor) Run(ctx context.Context) error {
	buffer := make([]byte, ReadBufferSize)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stopping VE.Direct monitor.")
			return nil
		default:
		}

		n, err := m.currentTransport().Read(buffer)
		if n > 0 {
			m.ingest(buffer[:n])
		}
		if err == nil {
			continue
		}

		if m.reconnect == nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read from %s: %w", m.portName(), err)
		}
		m.logger.Warn("Error reading from transport", zap.String("port", m.portName()), zap.Error(err))
		if err := m.reconnectLoop(ctx); err != nil {
			return err
		}
	}
}

// Ingest feeds p to the decoder as if it had been read from the transport.
func (m *Monitor) Ingest(p []byte) {
	m.ingest(p)
}

func (m *Monitor) ingest(p []byte) {
	m.mu.Lock()
	m.decoder.Feed(p)
	var snapshot []Field
	subscribers := m.subscribers
	if len(subscribers) > 0 && m.decoder.HasNewData() {
		snapshot = m.decoder.Read()
		m.decoder.Clear()
	}
	m.mu.Unlock()

	if snapshot == nil {
		return
	}
	for _, fn := range subscribers {
		fn(snapshot)
	}
}

// reconnectLoop attempts to re-establish the link.
func (m *Monitor) reconnectLoop(ctx context.Context) error {
	m.logger.Info("Attempting to reconnect...")
	m.closeTransport()
	for i := 0; i < m.maxRetries; i++ {
		transport, err := m.reconnect()
		if err == nil {
			m.writeMu.Lock()
			m.transport = transport
			m.writeMu.Unlock()

			m.mu.Lock()
			m.decoder.Reset()
			m.mu.Unlock()

			m.logger.Info("Reconnected", zap.String("port", transport.PortName))
			return nil
		}
		m.logger.Info("Retrying to reconnect",
			zap.Int("attempt", i+1),
			zap.Int("max", m.maxRetries),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(m.retryDelay):
		}
	}
	return fmt.Errorf("failed to reconnect after %d attempts", m.maxRetries)
}

// Subscribe registers fn to receive the published table each time a chunk
// of input completed at least one TEXT frame. Subscribers consume the
// new-data flag. fn runs on the goroutine calling Run.
func (m *Monitor) Subscribe(fn func([]Field)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// RegisterHexHandler registers h with the decoder.
func (m *Monitor) RegisterHexHandler(h HexHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decoder.RegisterHexHandler(h)
}

// Poll returns the table and clears the new-data flag if a TEXT frame was
// accepted since the last Poll. ok is false otherwise.
func (m *Monitor) Poll() (fields []Field, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.decoder.HasNewData() {
		return nil, false
	}
	m.decoder.Clear()
	return m.decoder.Read(), true
}

// Snapshot returns the table without touching the new-data flag.
func (m *Monitor) Snapshot() []Field {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decoder.Read()
}

// Value returns the latest value of a field.
func (m *Monitor) Value(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decoder.Value(name)
}

// Names returns the names of all fields received so far.
func (m *Monitor) Names() []string {
	fields := m.Snapshot()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Stats returns the decoder counters.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decoder.Stats()
}

// SendHex writes a HEX command to the device. Any answer arrives through the
// registered HEX handlers; nothing correlates it with this call.
func (m *Monitor) SendHex(cmd Command, data []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.transport == nil || m.transport.Write == nil {
		return ErrNotWritable
	}
	frame := EncodeHexFrame(cmd, data)
	if _, err := m.transport.Write(frame); err != nil {
		m.logger.Warn("Failed to send HEX frame", zap.ByteString("frame", frame), zap.Error(err))
		return fmt.Errorf("write HEX frame: %w", err)
	}
	return nil
}

// Close closes the transport.
func (m *Monitor) Close() error {
	return m.closeTransport()
}

// PrintTable prints the current values, with units for known numeric fields.
func (m *Monitor) PrintTable(w io.Writer) {
	fmt.Fprintln(w, "Current VE.Direct values:")
	for _, f := range m.Snapshot() {
		if v, unit, ok := ParseNumeric(f.Name, f.Value); ok {
			fmt.Fprintf(w, "  %-8s %-12s (%g %s)\n", f.Name, f.Value, v, unit)
		} else {
			fmt.Fprintf(w, "  %-8s %s\n", f.Name, f.Value)
		}
	}
}

func (m *Monitor) currentTransport() *Transport {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.transport
}

func (m *Monitor) closeTransport() error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.transport == nil || m.transport.Close == nil {
		return nil
	}
	return m.transport.Close()
}

func (m *Monitor) portName() string {
	t := m.currentTransport()
	if t == nil {
		return ""
	}
	return t.PortName
}
