// Vedirect reads telemetry from Victron devices over a VE.Direct link.
//
// It decodes the TEXT frames the device sends every second, keeps the latest
// value of every field and can expose them as Prometheus metrics or publish
// them to an MQTT broker. HEX frames are validated and can be logged.
//
// Usage:
//
//	vedirect [command] [flags]
//
// See 'vedirect --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashajkofci/govedirect/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vedirect",
	Short: "VE.Direct telemetry reader",
	Long: `A reader for the Victron VE.Direct serial protocol.

Decodes TEXT frames from solar charge controllers, battery monitors and
inverters, validates their checksums and keeps the latest value of every
field. Values can be printed, exported to Prometheus or published to MQTT.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vedirect %s\n", version.Full())
	},
}
