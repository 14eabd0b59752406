package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"juno/internal/audio"
	"juno/internal/logging"
)

func newAudioCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Audio device and echo cancellation management",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newAudioDevicesCommand(ctx), newAudioSetupCommand(ctx), newAudioTeardownCommand(ctx))
	return cmd
}

func newAudioDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List PulseAudio capture and playback devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := audio.NewClient(cfg.Audio.PactlBinary)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, direction := range []audio.Direction{audio.Input, audio.Output} {
				devices, err := client.ListDevices(cmd.Context(), direction)
				if err != nil {
					return err
				}
				for _, device := range devices {
					kind := direction.String()
					if device.Monitor {
						kind += " (monitor)"
					}
					rows = append(rows, []string{
						kind,
						device.Name,
						strconv.Itoa(device.SampleRateHz),
						strconv.Itoa(device.Channels),
						device.Description,
					})
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Kind", "Name", "Rate", "Ch", "Description"}, rows))
			return nil
		},
	}
}

func newAudioSetupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Negotiate echo cancellation without starting the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			result, err := newAudioSetup(cfg, logger)(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Echo cancellation ready (%s backend)\n", result.Backend)
			fmt.Fprintf(out, "  microphone: %s -> %s\n", result.SourceMaster.Name, result.VirtualSource)
			fmt.Fprintf(out, "  speaker:    %s -> %s\n", result.SinkMaster.Name, result.VirtualSink)
			fmt.Fprintf(out, "  rate:       %d Hz, %d channel(s)\n", result.RateHz, result.Channels)
			return nil
		},
	}
}

func newAudioTeardownCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Unload the echo cancellation modules this program loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			client, err := audio.NewClient(cfg.Audio.PactlBinary)
			if err != nil {
				return err
			}

			if err := audio.NewNegotiator(client, logger).Teardown(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Echo cancellation modules unloaded")
			return nil
		},
	}
}
