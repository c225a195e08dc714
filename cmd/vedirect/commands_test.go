package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/albenik/go-serial/v2/enumerator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashajkofci/govedirect"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vedirect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
serial:
  port: /dev/ttyUSB0
  baud: 19200
  reconnect: false
decoder:
  log_hex: true
mqtt:
  broker: tcp://localhost:1883
  topic: solar/mppt/
`), 0o644))

	configPath = path
	t.Cleanup(func() { configPath = "" })
	flags := monitorCmd.Flags()
	require.NoError(t, flags.Set("port", "/dev/ttyUSB1"))
	require.NoError(t, flags.Set("no-checksum", "true"))

	cfg, err := loadConfig(monitorCmd)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.True(t, cfg.Decoder.DisableChecksum)
	assert.True(t, cfg.Decoder.LogHex)
	assert.Equal(t, "solar/mppt", cfg.MQTT.Topic)

	opts := decoderOptions(cfg)
	assert.Len(t, opts, 3)
}

func TestReplay(t *testing.T) {
	var capture []byte
	capture = append(capture, vedirect.EncodeTextFrame([]vedirect.Field{{Name: "PID", Value: "0xA053"}, {Name: "V", Value: "12800"}})...)
	capture = append(capture, vedirect.EncodeHexFrame(vedirect.CmdPing, nil)...)
	capture = append(capture, vedirect.EncodeTextFrame([]vedirect.Field{{Name: "V", Value: "12810"}})...)

	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, capture, 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"replay", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "0xA053")
	assert.Contains(t, out.String(), "12810")
	assert.Contains(t, out.String(), "TEXT frames: 2 accepted, 0 rejected")
	assert.Contains(t, out.String(), "HEX frames:  1 accepted")
}

func TestReplayMissingFile(t *testing.T) {
	rootCmd.SetArgs([]string{"replay", filepath.Join(t.TempDir(), "missing")})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	assert.Error(t, rootCmd.Execute())
}

func TestMatchesUSB(t *testing.T) {
	port := &enumerator.PortDetails{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "a6f0"}
	assert.True(t, matchesUSB(port, "0403", "A6F0"))
	assert.True(t, matchesUSB(port, "0403", "a6f0"))
	assert.False(t, matchesUSB(port, vedirect.VendorID, vedirect.ProductID))

	port.PID = "6015"
	assert.True(t, matchesUSB(port, vedirect.VendorID, vedirect.ProductID))
	assert.False(t, matchesUSB(&enumerator.PortDetails{Name: "/dev/ttyS0"}, vedirect.VendorID, vedirect.ProductID))
}
