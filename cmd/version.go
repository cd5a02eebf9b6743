package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Printf("ShopLens %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	// Report key presence without printing full secrets.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		fmt.Println("  GEMINI_API_KEY: configured")
	} else {
		fmt.Println("  GEMINI_API_KEY: not set")
		fmt.Println("  Hint: export GEMINI_API_KEY=your-api-key")
	}
	if os.Getenv("SHOPIFY_ACCESS_TOKEN") != "" || os.Getenv("SHOPLENS_SHOPIFY_ACCESS_TOKEN") != "" {
		fmt.Println("  SHOPIFY_ACCESS_TOKEN: configured")
	} else {
		fmt.Println("  SHOPIFY_ACCESS_TOKEN: not set")
	}

	return nil
}
