package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashajkofci/govedirect"
)

type fakeSource struct {
	stats  vedirect.Stats
	fields []vedirect.Field
}

func (f *fakeSource) Stats() vedirect.Stats      { return f.stats }
func (f *fakeSource) Snapshot() []vedirect.Field { return f.fields }

func TestCollectorCounters(t *testing.T) {
	src := &fakeSource{stats: vedirect.Stats{TextFrames: 7, TextErrors: 2, HexOverflows: 1}}
	c := NewCollector(src)

	expected := `
# HELP vedirect_text_frames_total TEXT frames by checksum result.
# TYPE vedirect_text_frames_total counter
vedirect_text_frames_total{result="accepted"} 7
vedirect_text_frames_total{result="rejected"} 2
# HELP vedirect_hex_overflows_total HEX frames abandoned because the buffer filled.
# TYPE vedirect_hex_overflows_total counter
vedirect_hex_overflows_total 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"vedirect_text_frames_total", "vedirect_hex_overflows_total")
	assert.NoError(t, err)
}

func TestCollectorFieldGauges(t *testing.T) {
	src := &fakeSource{fields: []vedirect.Field{
		{Name: "PID", Value: "0xA042"},
		{Name: "V", Value: "12800"},
		{Name: "I", Value: "-350"},
		{Name: "SOC", Value: "876"},
		{Name: "CE", Value: "---"},
	}}
	c := NewCollector(src)

	assert.Equal(t, 3, testutil.CollectAndCount(c, "vedirect_field_value"))

	expected := `
# HELP vedirect_field_value Latest value of a numeric VE.Direct field, in whole units.
# TYPE vedirect_field_value gauge
vedirect_field_value{name="I",unit="A"} -0.35
vedirect_field_value{name="SOC",unit="%"} 87.6
vedirect_field_value{name="V",unit="V"} 12.8
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "vedirect_field_value")
	assert.NoError(t, err)
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(&fakeSource{})))
	_, err := reg.Gather()
	assert.NoError(t, err)
}

func TestCollectorWithMonitor(t *testing.T) {
	mon := vedirect.NewMonitor(vedirect.ReaderTransport("test", strings.NewReader("")))
	mon.Ingest(vedirect.EncodeTextFrame([]vedirect.Field{{Name: "V", Value: "13100"}}))

	c := NewCollector(mon)
	assert.Equal(t, 1, testutil.CollectAndCount(c, "vedirect_field_value"))
}
