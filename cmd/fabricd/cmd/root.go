// Package cmd is fabricd's cobra command tree: serve drives a demo domain
// under a real process, draw prints its topology without serving it.
package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "FABRICD"

var (
	wireCapacity int
	healthAddr   string
	metricsAddr  string
)

// NewRootCmd builds fabricd's root command, with persistent flags bound
// through viper so every value may also come from an FABRICD_-prefixed
// environment variable — the teacher's cli/cmd/root.go pattern of a single
// PersistentPreRunE normalizing flags before any subcommand runs.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fabricd",
		Short: "fabricd runs an in-process typed message fabric",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(viper.GetString("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			log.SetLevel(level)
			wireCapacity = viper.GetInt("wire-buffer-capacity")
			healthAddr = viper.GetString("health-addr")
			metricsAddr = viper.GetString("metrics-addr")
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.Int("wire-buffer-capacity", 16, "per-subscriber wire buffer depth (K)")
	flags.String("health-addr", ":8090", "gRPC health-check listen address")
	flags.String("metrics-addr", ":9090", "Prometheus metrics listen address")

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	for _, name := range []string{"log-level", "wire-buffer-capacity", "health-addr", "metrics-addr"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			log.WithError(err).Fatalf("bug: bind flag %s", name)
		}
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newDrawCmd())
	return root
}
