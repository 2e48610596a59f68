package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"geomap/internal/config"
	"geomap/internal/logging"
	"geomap/internal/metrics"
	"geomap/internal/tui"
)

func main() {
	var configPath, metricsAddr string
	cmd := &cobra.Command{
		Use:           "geomap [file]",
		Short:         "Terminal map viewer and geometry editor",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			// The terminal belongs to the UI, so logs go to a file or nowhere.
			if cfg.Log.File == "" {
				logging.Discard()
			} else {
				closer, err := logging.Setup(cfg.Log)
				if err != nil {
					return err
				}
				defer closer.Close()
			}

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			if metricsAddr == "" {
				metricsAddr = cfg.Metrics.Addr
			}
			if metricsAddr != "" {
				srv := metrics.Serve(metricsAddr, reg)
				defer srv.Close()
			}

			engine, err := tui.NewEngine(cfg, m)
			if err != nil {
				return err
			}
			defer engine.Close()

			var model tea.Model
			if len(args) > 0 {
				model = tui.NewWithPath(engine, args[0])
			} else {
				model = tui.New(engine)
			}
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default $"+config.EnvPath+")")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	if err := cmd.Execute(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatal(err)
	}
}
