package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for meshmap.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meshmap",
		Short: "Topology crawler for overlay mesh networks",
		Long: `meshmap discovers the topology of an overlay mesh network.

It connects to the admin socket of the local mesh daemon, asks it for its
direct peers, then asks every node reachable through the daemon for its own
peers until the whole reachable graph is known. The graph is reconstructed
either from spanning tree coordinates (--mode path) or from the peerings
nodes report about themselves (--mode peers).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
