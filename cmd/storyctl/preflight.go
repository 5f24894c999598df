package main

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/storyframe-backend/internal/audio"
	"github.com/angelmondragon/storyframe-backend/internal/deps"
	"github.com/angelmondragon/storyframe-backend/pkg/config"
)

var errPreflightFailed = errors.New("preflight failed")

func newPreflightCommand() *cobra.Command {
	var ffmpegPath string
	var strict bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check external binaries and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var codec config.CodecConfig
			if err := envconfig.Process(config.EnvPrefix, &codec); err != nil {
				return fmt.Errorf("codec config: %w", err)
			}
			if ffmpegPath != "" {
				codec.FFmpegPath = ffmpegPath
			}

			statuses := deps.CheckBinaries([]deps.Requirement{
				audio.NewFFmpeg(codec.FFmpegPath).Requirement(),
			})

			rows := make([][]string, 0, len(statuses)+1)
			failed := false
			for _, s := range statuses {
				state, where := "ok", s.Path
				if !s.Available {
					state, where = "missing", s.Detail
					failed = failed || !s.Optional
				}
				rows = append(rows, []string{s.Name, s.Command, state, where})
			}

			cfgState, cfgDetail := "ok", "environment loaded"
			if _, err := config.Load(); err != nil {
				cfgState, cfgDetail = "invalid", err.Error()
				failed = true
			}
			rows = append(rows, []string{"Config", config.EnvPrefix + "_*", cfgState, cfgDetail})

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Target", "Status", "Detail"}, rows))

			if failed && strict {
				return errPreflightFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "", "Override the ffmpeg binary to check")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when a required check fails")
	return cmd
}
