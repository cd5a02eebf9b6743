// Package cmd defines the shoplens command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shoplens",
	Short: "ShopLens - conversational analytics for Shopify stores",
	Long: `ShopLens answers natural-language questions about a Shopify store.

It serves a chat UI and a JSON API; queries are answered by a hosted
model that fetches live data through the Shopify Admin API.

Run "shoplens serve" to start the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Serving is the only mode, so the bare command serves.
		return runServe(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
