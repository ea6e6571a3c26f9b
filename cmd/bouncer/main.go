// Command bouncer plays admission-control scenarios against the challenge
// server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bouncer",
	Short: "Admission-control player for the nightclub challenge",
	Long: `bouncer plays the nightclub admission challenge: it fills a venue of
fixed capacity from a stream of candidates, one irrevocable accept/reject
decision at a time, while meeting minimum-count attribute quotas and keeping
the rejection total as low as possible.

Strategy parameters come from a pluggable advisor (a local heuristic or an
Anthropic model) behind a fingerprint-indexed cache, with a hardcoded
fallback so a dead advisor never stops play.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newPlayCommand())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
