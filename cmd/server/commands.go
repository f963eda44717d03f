package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	routeDomain "github.com/moplan-logistics/service-routing/internal/domain/route"
)

func runSync(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.planning.Sync(cmd.Context(), "cli")
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "origins=%d destinations=%d plans=%d skipped=%v\n",
		report.Origins, report.Destinations, report.Plans, report.Skipped)
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	pair, err := parsePair(args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.routes.Resolve(cmd.Context(), pair)
	if err != nil {
		return err
	}

	source := "routing provider"
	if result.Cached {
		source = "cache"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "key=%s distance_km=%v duration_min=%v points=%d source=%s\n",
		result.Key, result.DistanceKm, result.DurationMin, len(result.LineString()), source)
	return nil
}

func parsePair(args []string) (routeDomain.Pair, error) {
	var v [4]float64
	for i, arg := range args {
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return routeDomain.Pair{}, fmt.Errorf("argument %d: %q is not a number", i+1, arg)
		}
		v[i] = f
	}
	pair := routeDomain.Pair{OriginLon: v[0], OriginLat: v[1], DestLon: v[2], DestLat: v[3]}
	return pair, pair.Validate()
}
