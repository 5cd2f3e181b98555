package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"storefront-distance-service/internal/adapters/repositories"
	"storefront-distance-service/internal/app"
	"storefront-distance-service/internal/config"
	"storefront-distance-service/internal/domain"
	"storefront-distance-service/internal/platform/obs"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "distctl",
		Short:         "Resolve storefront distances and geocode places",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		newDistancesCmd(opts),
		newReverseCmd(opts),
		newSearchCmd(opts),
	)
	return root
}

// setup loads configuration and wires the service exactly like the server does.
func setup(cmd *cobra.Command, opts *rootOptions) (*app.App, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := obs.NewLogger(opts.logLevel, "console")
	if err != nil {
		return nil, err
	}

	return app.New(cmd.Context(), cfg, logger)
}

func newDistancesCmd(opts *rootOptions) *cobra.Command {
	var (
		originFlag string
		shopsPath  string
	)

	cmd := &cobra.Command{
		Use:   "distances",
		Short: "Print driving distances in km from an origin to each shop in a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			origin, err := parseLatLon(originFlag)
			if err != nil {
				return fmt.Errorf("--origin: %w", err)
			}
			shops, err := repositories.LoadShopsJSON(shopsPath)
			if err != nil {
				return err
			}

			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.Resolver.Resolve(cmd.Context(), origin, shops)
			failed := res.Failed
			if failed == nil {
				failed = []string{}
			}
			return printJSON(cmd, map[string]any{
				"distances": res.Resolved,
				"failed":    failed,
			})
		},
	}
	cmd.Flags().StringVar(&originFlag, "origin", "", "origin as lat,lon")
	cmd.Flags().StringVar(&shopsPath, "shops", "", "path to a JSON array of {id, lat, lon}")
	_ = cmd.MarkFlagRequired("origin")
	_ = cmd.MarkFlagRequired("shops")
	return cmd
}

func newReverseCmd(opts *rootOptions) *cobra.Command {
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "reverse",
		Short: "Print the locality name at a coordinate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			name, ok := a.Geocoder.ReverseGeocode(cmd.Context(), lat, lon)
			if !ok {
				return errors.New("reverse geocode failed")
			}
			return printJSON(cmd, map[string]string{"location": name})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Print the best coordinate match for a place name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			place, ok := a.Geocoder.Search(cmd.Context(), query)
			if !ok {
				return fmt.Errorf("no match for %q", query)
			}
			return printJSON(cmd, map[string]any{
				"lat":          place.Lat,
				"lon":          place.Lon,
				"display_name": place.DisplayName,
			})
		},
	}
}

func parseLatLon(s string) (domain.Coordinates, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("expected lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse lat %q: %w", latStr, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse lon %q: %w", lonStr, err)
	}
	return domain.Coordinates{Lat: lat, Lon: lon}, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
