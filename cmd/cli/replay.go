package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/defeedco/wanderlens/pkg/location"
	"github.com/defeedco/wanderlens/pkg/notify"
	"github.com/defeedco/wanderlens/pkg/photos/flickr"
	"github.com/defeedco/wanderlens/pkg/tracking"
)

const (
	FlagTrack     = "track"
	FlagInterval  = "interval"
	FlagThreshold = "threshold"
)

// GetReplayCmd returns the track replay command.
func GetReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded track and print result updates as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Parse inputs
			trackPath, err := cmd.Flags().GetString(FlagTrack)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagTrack, err)
			}
			interval, err := cmd.Flags().GetDuration(FlagInterval)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagInterval, err)
			}
			threshold, err := cmd.Flags().GetFloat64(FlagThreshold)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagThreshold, err)
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed(FlagThreshold) {
				cfg.Tracking.ThresholdMeters = threshold
			}

			track, err := location.LoadTrack(trackPath)
			if err != nil {
				return err
			}

			// Init
			client := flickr.NewDefaultClient(&cfg.Flickr, logger)
			notifier := notify.NewNotifier(logger)
			defer notifier.Close()
			coordinator := tracking.NewCoordinator(logger, client, notifier, &cfg.Tracking,
				tracking.WithURLBuilder(client.ImageURL))
			defer coordinator.Close()
			tracker := tracking.NewTracker(logger, location.NewReplay(track, interval, logger), coordinator)

			enc := json.NewEncoder(cmd.OutOrStdout())
			notifier.Subscribe(func(e notify.Event) {
				if err := enc.Encode(e); err != nil {
					logger.Error().Err(err).Msg("Write event")
				}
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if _, err := tracker.Start(ctx); err != nil {
				return fmt.Errorf("start tracking: %w", err)
			}
			defer tracker.Stop()

			// Wait for the track to end and the last search to settle.
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					session, ok := tracker.Session()
					if ok && !session.Streaming && !session.Status.InFlight {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().String(FlagTrack, "", "track file (.json, .yaml or .yml)")
	cmd.Flags().Duration(FlagInterval, time.Second, "(optional) delay between fixes")
	cmd.Flags().Float64(FlagThreshold, 100, "(optional) minimum distance between searches in meters")
	_ = cmd.MarkFlagRequired(FlagTrack)

	return cmd
}

func init() {
	rootCmd.AddCommand(GetReplayCmd())
}
