package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/albenik/go-serial/v2/enumerator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashajkofci/govedirect"
	"github.com/ashajkofci/govedirect/internal/config"
	"github.com/ashajkofci/govedirect/internal/logging"
	"github.com/ashajkofci/govedirect/internal/metrics"
	"github.com/ashajkofci/govedirect/internal/mqttpub"
)

// Monitor command and flags
var (
	configPath     string
	portName       string
	baudRate       int
	logLevel       string
	noChecksum     bool
	logHex         bool
	metricsListen  string
	mqttBroker     string
	mqttTopic      string
	printEachFrame bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Read a VE.Direct device continuously",
	Long: `Open the VE.Direct link and decode it until interrupted.

Without --port the VE.Direct USB interface is located by its USB vendor and
product id. Settings come from the optional --config file; flags given on the
command line take precedence.`,
	Example: `  # Auto-detect the VE.Direct USB cable and print every frame
  vedirect monitor --print

  # Explicit port, Prometheus exporter on :9101
  vedirect monitor --port /dev/ttyUSB0 --metrics-listen :9101

  # Publish every field to MQTT under solar/mppt/<NAME>
  vedirect monitor --mqtt-broker tcp://localhost:1883 --mqtt-topic solar/mppt`,
	RunE: runMonitor,
}

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a captured VE.Direct byte stream",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE:  runPorts,
}

func init() {
	f := monitorCmd.Flags()
	f.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	f.StringVar(&portName, "port", "", "Serial device (empty = find the VE.Direct USB interface)")
	f.IntVar(&baudRate, "baud", 0, "Baud rate (default 19200)")
	f.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.BoolVar(&noChecksum, "no-checksum", false, "Accept TEXT frames with a bad checksum")
	f.BoolVar(&logHex, "log-hex", false, "Log every valid HEX frame")
	f.StringVar(&metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address")
	f.StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL (empty = disabled)")
	f.StringVar(&mqttTopic, "mqtt-topic", "", "MQTT base topic")
	f.BoolVar(&printEachFrame, "print", false, "Print the table after every frame")

	replayCmd.Flags().BoolVar(&noChecksum, "no-checksum", false, "Accept TEXT frames with a bad checksum")
	replayCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig builds the effective configuration from file and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = baudRate
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("no-checksum") {
		cfg.Decoder.DisableChecksum = noChecksum
	}
	if flags.Changed("log-hex") {
		cfg.Decoder.LogHex = logHex
	}
	if flags.Changed("metrics-listen") {
		cfg.Metrics.Listen = metricsListen
	}
	if flags.Changed("mqtt-broker") {
		cfg.MQTT.Broker = mqttBroker
	}
	if flags.Changed("mqtt-topic") {
		cfg.MQTT.Topic = mqttTopic
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func decoderOptions(cfg *config.Config) []vedirect.Option {
	opts := []vedirect.Option{vedirect.WithLogger(logging.GetLogger())}
	if cfg.Decoder.DisableChecksum {
		opts = append(opts, vedirect.WithoutChecksum())
	}
	if cfg.Decoder.LogHex {
		opts = append(opts, vedirect.WithHexHandler(vedirect.HexHandlerFunc(logging.LogHexFrame)))
	}
	return opts
}

func openTransport(serialCfg config.SerialConfig) (*vedirect.Transport, error) {
	if serialCfg.Port == "" {
		return vedirect.GetTransport(serialCfg.VendorID, serialCfg.ProductID, serialCfg.Baud)
	}
	port, err := vedirect.OpenPort(serialCfg.Port, serialCfg.Baud)
	if err != nil {
		return nil, err
	}
	return vedirect.NewPortTransport(port, serialCfg.Port, nil), nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Log.Level); err != nil {
		return err
	}
	defer logging.Sync()

	transport, err := openTransport(cfg.Serial)
	if err != nil {
		return fmt.Errorf("failed to open VE.Direct link: %w", err)
	}

	opts := []vedirect.MonitorOption{
		vedirect.WithDecoderOptions(decoderOptions(cfg)...),
		vedirect.WithMonitorLogger(logging.GetLogger()),
	}
	if cfg.Serial.Reconnect {
		serialCfg := cfg.Serial
		opts = append(opts,
			vedirect.WithReconnect(func() (*vedirect.Transport, error) { return openTransport(serialCfg) }),
			vedirect.WithRetry(serialCfg.MaxRetries, time.Duration(serialCfg.RetryDelayMs)*time.Millisecond),
		)
	}
	mon := vedirect.NewMonitor(transport, opts...)
	defer mon.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen, mon)
		defer srv.Close()
	}

	if cfg.MQTT.Broker != "" {
		pub, err := mqttpub.Connect(cfg.MQTT)
		if err != nil {
			return err
		}
		defer pub.Close()
		mon.Subscribe(func(fields []vedirect.Field) {
			if err := pub.Publish(fields); err != nil {
				logging.Warn("MQTT publish failed", zap.Error(err))
			}
		})
	}

	if printEachFrame {
		mon.Subscribe(func([]vedirect.Field) {
			mon.PrintTable(os.Stdout)
		})
	}

	logging.Info("Reading VE.Direct", zap.String("port", transport.PortName))
	return mon.Run(ctx)
}

func serveMetrics(addr string, mon *vedirect.Monitor) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(mon))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server failed", zap.String("listen", addr), zap.Error(err))
		}
	}()
	logging.Info("Serving metrics", zap.String("listen", addr))
	return srv
}

func runReplay(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}

	cfg := config.Default()
	cfg.Decoder.DisableChecksum = noChecksum
	mon := vedirect.NewMonitor(vedirect.ReaderTransport(args[0], f),
		vedirect.WithDecoderOptions(decoderOptions(cfg)...),
		vedirect.WithMonitorLogger(logging.GetLogger()),
	)
	defer mon.Close()

	if err := mon.Run(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	mon.PrintTable(out)
	s := mon.Stats()
	fmt.Fprintf(out, "TEXT frames: %d accepted, %d rejected\n", s.TextFrames, s.TextErrors)
	fmt.Fprintf(out, "HEX frames:  %d accepted, %d rejected, %d overflowed\n", s.HexFrames, s.HexErrors, s.HexOverflows)
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := vedirect.ListPorts()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found.")
		return nil
	}
	for _, p := range ports {
		marker := ""
		if matchesUSB(p, vedirect.VendorID, vedirect.ProductID) {
			marker = "  <- VE.Direct USB"
		}
		if p.IsUSB {
			fmt.Fprintf(out, "%s\tUSB %s:%s %s %s%s\n", p.Name, p.VID, p.PID, p.Product, p.SerialNumber, marker)
		} else {
			fmt.Fprintf(out, "%s\n", p.Name)
		}
	}
	return nil
}

// matchesUSB reports whether p is the USB device vid:pid. Enumerators differ
// in the case of the ids they report.
func matchesUSB(p *enumerator.PortDetails, vid, pid string) bool {
	return p.IsUSB && strings.EqualFold(p.VID, vid) && strings.EqualFold(p.PID, pid)
}
