package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"juno/internal/audio"
	"juno/internal/compose"
	"juno/internal/config"
	"juno/internal/freshness"
	"juno/internal/launcher"
	"juno/internal/logging"
	"juno/internal/provision"
	"juno/internal/runstate"
)

func newUpCommand(ctx *commandContext) *cobra.Command {
	var releaseTag string
	var services []string
	var webServer bool
	var acmeDomain string

	cmd := &cobra.Command{
		Use:     "up",
		Aliases: []string{"run"},
		Short:   "Pull and start the assistant stack",
		Long: "Merges the stack's compose layers, pins the requested release, pulls\n" +
			"fresh images, prepares echo cancellation for voice services, and runs\n" +
			"docker compose up attached until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			l, err := buildLauncher(cfg, logger, cmd)
			if err != nil {
				return err
			}

			return l.Run(signalCtx, launcher.RunOptions{
				ReleaseTag:  releaseTag,
				Services:    services,
				ServicesSet: cmd.Flags().Changed("services"),
				WebServer:   webServer,
				ACMEDomain:  acmeDomain,
			})
		},
	}

	cmd.Flags().StringVar(&releaseTag, "release", "", "Image tag to pin all stack services to")
	cmd.Flags().StringSliceVar(&services, "services", nil, "Services to start instead of the configured defaults")
	cmd.Flags().BoolVar(&webServer, "web-server", false, "Also start the web front end")
	cmd.Flags().StringVar(&acmeDomain, "acme-domain", "", "Certificate domain for the web front end")

	return cmd
}

func buildLauncher(cfg *config.Config, logger *slog.Logger, cmd *cobra.Command) (*launcher.Launcher, error) {
	composer, err := compose.NewComposer(compose.Settings{
		Binary:       cfg.Stack.DockerBinary,
		ProjectName:  cfg.Stack.ProjectName,
		Layers:       cfg.ComposePaths(),
		Registry:     cfg.Images.Registry,
		Organization: cfg.Images.Organization,
		Product:      cfg.Images.Product,
	}, logger)
	if err != nil {
		return nil, err
	}

	return launcher.New(launcher.Params{
		Config:      cfg,
		Store:       runstate.NewStore(afero.NewOsFs(), cfg.StatePath()),
		Composer:    composer,
		Runner:      compose.NewRunner(cfg.Stack.DockerBinary, cfg.Stack.ProjectName, logger),
		Freshness:   freshness.NewChecker(cfg.Freshness.GitBinary, cfg.Stack.Directory, logger),
		Provision:   provision.NewGate(cfg.ScriptPath(), cfg.Stack.Directory, logger),
		Audio:       newAudioSetup(cfg, logger),
		Logger:      logger,
		Stdin:       cmd.InOrStdin(),
		Stdout:      cmd.OutOrStdout(),
		Interactive: stdinIsTerminal(),
	})
}

// newAudioSetup defers pactl discovery until the launcher knows the selected
// services actually include a voice path.
func newAudioSetup(cfg *config.Config, logger *slog.Logger) launcher.AudioSetup {
	return func(ctx context.Context) (*audio.AECConfig, error) {
		client, err := audio.NewClient(cfg.Audio.PactlBinary)
		if err != nil {
			return nil, err
		}
		return audio.Setup(ctx, client, audio.SetupConfig{
			InputPatterns:  cfg.Audio.InputPatterns,
			OutputPatterns: cfg.Audio.OutputPatterns,
			FallbackRateHz: cfg.Audio.FallbackRateHz,
			DeviceWait:     time.Duration(cfg.Audio.DeviceWaitSeconds) * time.Second,
		}, logger)
	}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
