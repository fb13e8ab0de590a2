package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/defeedco/wanderlens/pkg/photos/flickr"
)

const (
	FlagLat = "lat"
	FlagLon = "lon"
)

type searchOutput struct {
	Status string   `json:"status"`
	Total  int      `json:"total"`
	URLs   []string `json:"urls"`
	Error  string   `json:"error,omitempty"`
}

// GetSearchCmd returns the one-off photo search command.
func GetSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search photos around a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Parse inputs
			lat, err := cmd.Flags().GetFloat64(FlagLat)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagLat, err)
			}
			lon, err := cmd.Flags().GetFloat64(FlagLon)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagLon, err)
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			// Work
			client := flickr.NewDefaultClient(&cfg.Flickr, logger)
			res := client.Search(cmd.Context(), lat, lon)

			out := searchOutput{
				Status: string(res.Status),
				Total:  res.Total,
				URLs:   make([]string, len(res.Photos)),
			}
			for i, ref := range res.Photos {
				out.URLs[i] = client.ImageURL(ref)
			}
			if err := res.Failure(); err != nil {
				out.Error = err.Error()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().Float64(FlagLat, 0, "latitude in degrees")
	cmd.Flags().Float64(FlagLon, 0, "longitude in degrees")
	_ = cmd.MarkFlagRequired(FlagLat)
	_ = cmd.MarkFlagRequired(FlagLon)

	return cmd
}

func init() {
	rootCmd.AddCommand(GetSearchCmd())
}
