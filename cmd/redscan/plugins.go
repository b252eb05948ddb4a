package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probelab/redscan/internal/generation"
	"github.com/probelab/redscan/internal/scan"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List builtin plugins and scan tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Plugins:")
		for _, id := range generation.BuiltinPluginIDs() {
			fmt.Printf("  %s\n", id)
		}

		fmt.Println("\nTiers:")
		for _, name := range scan.TierNames() {
			tier, err := scan.LoadTier(name)
			if err != nil {
				return err
			}
			fmt.Printf("  %-10s %s (%d plugins, %d tests/plugin)\n",
				name, tier.Description, len(tier.Plugins), tier.NumTests)
		}
		return nil
	},
}
