package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lanternhq/lantern/gateway"
	"github.com/lanternhq/lantern/pkg/inference"
	"github.com/lanternhq/lantern/pkg/logger"
)

const serveLongDesc string = `Run the lantern multimodal inference gateway.

The gateway accepts text, image, and audio payloads over HTTP, stages
uploads in a request-scoped temporary directory, and forwards a single
assembled request to the upstream Gemini model.

The upstream API key is read from GEMINI_API_KEY or GOOGLE_API_KEY
(a .env file in the working directory is loaded if present).

Examples:
  lantern
  lantern --listen :9090 --model gemini-2.5-flash
  lantern --config /etc/lantern/lantern.toml --debug`

type serveCommander struct {
	listenAddr string
	configPath string
	model      string
	stagingDir string
	debug      bool
}

func main() {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "lantern",
		Short: "Multimodal inference gateway",
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", ":8080", "Address to listen on")
	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config file")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Upstream model name")
	cmd.Flags().StringVar(&cmder.stagingDir, "staging-dir", "", "Directory for staged uploads")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	// Environment first so the config and client can see .env values.
	_ = godotenv.Load()

	log := logger.NewLogger(c.debug)
	defer log.Sync()

	config, err := gateway.LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	// Flags override the config file when set explicitly.
	if cmd.Flags().Changed("listen") {
		config.ListenAddr = c.listenAddr
	}
	if c.model != "" {
		config.Model = c.model
	}
	if c.stagingDir != "" {
		config.StagingDir = c.stagingDir
	}

	client, err := inference.NewGemini(cmd.Context(), config.Model, log)
	if err != nil {
		return fmt.Errorf("could not create upstream client: %w", err)
	}
	defer client.Close()

	g, err := gateway.New(config, client, log)
	if err != nil {
		return fmt.Errorf("could not create gateway: %w", err)
	}
	defer g.Close()

	log.Info("lantern gateway starting",
		zap.String("listen", config.ListenAddr),
		zap.String("model", config.Model),
		zap.Bool("debug", c.debug),
	)

	return g.Run()
}
