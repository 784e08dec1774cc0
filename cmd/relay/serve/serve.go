package servecmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduitlabs/relay/pkg/logger"
	"github.com/conduitlabs/relay/relay"
)

const serveLongDesc string = `Start the relay server.

Reads the TOML configuration file, selects the LLM provider from the
configured keys (Gemini when present, otherwise OpenAI), and serves the
conversation endpoint.

Examples:
  relay serve --config relay.toml
  relay serve --config relay.toml --listen :9000 --debug`

const serveShortDesc string = "Start the relay server"

type serveCommander struct {
	configPath string
	listenAddr string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML configuration file")
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", "", "Override the listen address")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run() error {
	cfg := relay.DefaultConfig()
	if c.configPath != "" {
		var err error
		cfg, err = relay.LoadConfig(c.configPath)
		if err != nil {
			return fmt.Errorf("could not load configuration: %w", err)
		}
	}
	if c.listenAddr != "" {
		cfg.ListenAddr = c.listenAddr
	}

	log := logger.NewLogger(c.debug)
	defer log.Sync()

	log.Info("relay starting",
		zap.String("listen", cfg.ListenAddr),
		zap.Bool("debug", c.debug),
	)

	r, err := relay.New(cfg, log)
	if err != nil {
		return fmt.Errorf("could not create relay: %w", err)
	}
	defer r.Close()

	if err := r.Run(); err != nil {
		return fmt.Errorf("relay server failed: %w", err)
	}

	return nil
}
