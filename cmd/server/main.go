package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "service-routing"

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Route cache and planning map service",
	Long: `Resolves driving routes between coordinate pairs through a Postgres-backed
cache in front of an OSRM routing server, and imports shipment planning data
so the route of any planned order can be drawn on a map.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import planning data from the planning API once",
	RunE:  runSync,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <lon1> <lat1> <lon2> <lat2>",
	Short: "Resolve a single route through the cache",
	Long: `Resolve the driving route between two points, reading from and filling the
route cache, and print its distance and duration.`,
	Args: cobra.ExactArgs(4),
	// Negative coordinates would otherwise be parsed as shorthand flags.
	DisableFlagParsing: true,
	RunE:               runResolve,
}

func init() {
	rootCmd.AddCommand(serveCmd, syncCmd, resolveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
