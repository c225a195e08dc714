/*
 * VE.Direct Library in Go
 *
 * This file is part of govedirect, a Go decoder for the Victron VE.Direct
 * serial protocol used by solar charge controllers and battery monitors.
 *
 * License: MIT License
 * Author: Adrian Shajkofci, 2024
 */
package vedirect

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func capture(frames ...[]Field) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, EncodeTextFrame(f)...)
	}
	return out
}

func newTestMonitor(t *testing.T, transport *Transport, opts ...MonitorOption) *Monitor {
	t.Helper()
	logger := zaptest.NewLogger(t)
	opts = append([]MonitorOption{
		WithMonitorLogger(logger),
		WithDecoderOptions(WithLogger(logger)),
	}, opts...)
	return NewMonitor(transport, opts...)
}

func TestMonitorRunToEOF(t *testing.T) {
	data := capture(
		[]Field{{"PID", "0xA053"}, {"V", "12800"}},
		[]Field{{"V", "12810"}, {"I", "-150"}},
	)
	m := newTestMonitor(t, ReaderTransport("capture", bytes.NewReader(data)))

	require.NoError(t, m.Run(context.Background()))

	fields, ok := m.Poll()
	require.True(t, ok)
	assert.Equal(t, []Field{{"PID", "0xA053"}, {"V", "12810"}, {"I", "-150"}}, fields)
	_, ok = m.Poll()
	assert.False(t, ok)

	assert.Equal(t, []string{"PID", "V", "I"}, m.Names())
	v, ok := m.Value("i")
	assert.True(t, ok)
	assert.Equal(t, "-150", v)
	assert.Equal(t, uint64(2), m.Stats().TextFrames)
}

func TestMonitorRunReadError(t *testing.T) {
	boom := errors.New("device unplugged")
	m := newTestMonitor(t, &Transport{
		Read:     func([]byte) (int, error) { return 0, boom },
		PortName: "/dev/ttyUSB0",
	})

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "/dev/ttyUSB0")
}

func TestMonitorRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := newTestMonitor(t, &Transport{
		Read: func([]byte) (int, error) {
			t.Fatal("read after cancel")
			return 0, nil
		},
	})

	assert.NoError(t, m.Run(ctx))
}

func TestMonitorSubscribe(t *testing.T) {
	m := newTestMonitor(t, ReaderTransport("capture", strings.NewReader("")))

	var got [][]Field
	m.Subscribe(func(fields []Field) { got = append(got, fields) })

	m.Ingest(EncodeTextFrame([]Field{{"V", "12800"}}))
	m.Ingest([]byte("\r\nI\t5"))
	m.Ingest([]byte("0\r\nChecksum\t"))
	m.Ingest([]byte{TextChecksum([]byte("\r\nI\t50\r\nChecksum\t"))})

	require.Len(t, got, 2)
	assert.Equal(t, []Field{{"V", "12800"}}, got[0])
	assert.Equal(t, []Field{{"V", "12800"}, {"I", "50"}}, got[1])

	// Subscribers consume the new-data flag.
	_, ok := m.Poll()
	assert.False(t, ok)
	assert.Len(t, m.Snapshot(), 2)
}

func TestMonitorHexHandler(t *testing.T) {
	m := newTestMonitor(t, ReaderTransport("capture", strings.NewReader("")))
	var frames []string
	m.RegisterHexHandler(HexHandlerFunc(func(frame []byte) {
		frames = append(frames, string(frame))
	}))

	m.Ingest([]byte(":154\n:7F0ED0071\n"))

	assert.Equal(t, []string{":154", ":7F0ED0071"}, frames)
	assert.Equal(t, uint64(2), m.Stats().HexFrames)
}

func TestMonitorSendHex(t *testing.T) {
	var written bytes.Buffer
	m := newTestMonitor(t, &Transport{
		Read:  func([]byte) (int, error) { return 0, io.EOF },
		Write: written.Write,
	})

	require.NoError(t, m.SendHex(CmdPing, nil))
	require.NoError(t, m.SendHex(CmdGet, []byte{0xF0, 0xED, 0x00}))
	assert.Equal(t, ":154\n:7F0ED0071\n", written.String())
}

func TestMonitorSendHexErrors(t *testing.T) {
	m := newTestMonitor(t, ReaderTransport("capture", strings.NewReader("")))
	assert.ErrorIs(t, m.SendHex(CmdPing, nil), ErrNotWritable)

	boom := errors.New("write failed")
	m = newTestMonitor(t, &Transport{
		Read:  func([]byte) (int, error) { return 0, io.EOF },
		Write: func([]byte) (int, error) { return 0, boom },
	})
	assert.ErrorIs(t, m.SendHex(CmdPing, nil), boom)
}

// scripted is a transport that returns its data and then fails.
type scripted struct {
	r      io.Reader
	err    error
	closed int
}

func (s *scripted) transport(name string) *Transport {
	return &Transport{
		Read: func(p []byte) (int, error) {
			n, err := s.r.Read(p)
			if err == io.EOF {
				return n, s.err
			}
			return n, err
		},
		Close: func() error {
			s.closed++
			return nil
		},
		PortName: name,
	}
}

func TestMonitorReconnect(t *testing.T) {
	lost := errors.New("link lost")
	first := &scripted{r: strings.NewReader("\r\nV\t12"), err: lost}
	second := &scripted{r: bytes.NewReader(capture([]Field{{"V", "13000"}})), err: lost}

	dials := 0
	dial := func() (*Transport, error) {
		dials++
		if dials == 1 {
			return second.transport("second"), nil
		}
		return nil, errors.New("no device")
	}

	m := newTestMonitor(t, first.transport("first"),
		WithReconnect(dial),
		WithRetry(2, time.Millisecond),
	)

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reconnect after 2 attempts")
	assert.Equal(t, 3, dials)
	assert.Equal(t, 1, first.closed)
	assert.Equal(t, 1, second.closed)

	// The partial record from the first link was dropped on reconnect.
	assert.Equal(t, []Field{{"V", "13000"}}, m.Snapshot())
}

func TestMonitorReconnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &scripted{r: strings.NewReader(""), err: errors.New("link lost")}

	m := newTestMonitor(t, first.transport("first"),
		WithReconnect(func() (*Transport, error) {
			cancel()
			return nil, errors.New("no device")
		}),
		WithRetry(5, time.Hour),
	)

	assert.NoError(t, m.Run(ctx))
}

func TestMonitorPrintTable(t *testing.T) {
	m := newTestMonitor(t, ReaderTransport("capture", strings.NewReader("")))
	m.Ingest(EncodeTextFrame([]Field{{"PID", "0xA053"}, {"V", "12800"}}))

	var out bytes.Buffer
	m.PrintTable(&out)

	assert.Contains(t, out.String(), "Current VE.Direct values:")
	assert.Contains(t, out.String(), "0xA053")
	assert.Contains(t, out.String(), "(12.8 V)")
}

func TestMonitorClose(t *testing.T) {
	s := &scripted{r: strings.NewReader(""), err: io.EOF}
	m := newTestMonitor(t, s.transport("port"))

	assert.NoError(t, m.Close())
	assert.Equal(t, 1, s.closed)

	m = newTestMonitor(t, ReaderTransport("capture", strings.NewReader("")))
	assert.NoError(t, m.Close())
}
