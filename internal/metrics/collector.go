// Package metrics exposes decoder counters and numeric VE.Direct fields to
// Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ashajkofci/govedirect"
)

// Source is what the collector reads on every scrape. *vedirect.Monitor
// satisfies it.
type Source interface {
	Stats() vedirect.Stats
	Snapshot() []vedirect.Field
}

// Collector is a prometheus.Collector reading a Source at scrape time.
type Collector struct {
	source Source

	textFrames      *prometheus.Desc
	hexFrames       *prometheus.Desc
	hexOverflows    *prometheus.Desc
	fieldsTruncated *prometheus.Desc
	fieldsDropped   *prometheus.Desc
	fieldValue      *prometheus.Desc
}

// NewCollector returns a collector for source.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		textFrames: prometheus.NewDesc("vedirect_text_frames_total",
			"TEXT frames by checksum result.", []string{"result"}, nil),
		hexFrames: prometheus.NewDesc("vedirect_hex_frames_total",
			"HEX frames by checksum result.", []string{"result"}, nil),
		hexOverflows: prometheus.NewDesc("vedirect_hex_overflows_total",
			"HEX frames abandoned because the buffer filled.", nil, nil),
		fieldsTruncated: prometheus.NewDesc("vedirect_fields_truncated_total",
			"Fields whose name or value was cut to fit.", nil, nil),
		fieldsDropped: prometheus.NewDesc("vedirect_fields_dropped_total",
			"Fields dropped because the frame or the table was full.", nil, nil),
		fieldValue: prometheus.NewDesc("vedirect_field_value",
			"Latest value of a numeric VE.Direct field, in whole units.", []string{"name", "unit"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.textFrames
	ch <- c.hexFrames
	ch <- c.hexOverflows
	ch <- c.fieldsTruncated
	ch <- c.fieldsDropped
	ch <- c.fieldValue
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.textFrames, prometheus.CounterValue, float64(s.TextFrames), "accepted")
	ch <- prometheus.MustNewConstMetric(c.textFrames, prometheus.CounterValue, float64(s.TextErrors), "rejected")
	ch <- prometheus.MustNewConstMetric(c.hexFrames, prometheus.CounterValue, float64(s.HexFrames), "accepted")
	ch <- prometheus.MustNewConstMetric(c.hexFrames, prometheus.CounterValue, float64(s.HexErrors), "rejected")
	ch <- prometheus.MustNewConstMetric(c.hexOverflows, prometheus.CounterValue, float64(s.HexOverflows))
	ch <- prometheus.MustNewConstMetric(c.fieldsTruncated, prometheus.CounterValue, float64(s.FieldsTruncated))
	ch <- prometheus.MustNewConstMetric(c.fieldsDropped, prometheus.CounterValue, float64(s.FieldsDropped))

	for _, f := range c.source.Snapshot() {
		v, unit, ok := vedirect.ParseNumeric(f.Name, f.Value)
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.fieldValue, prometheus.GaugeValue, v, f.Name, unit)
	}
}
