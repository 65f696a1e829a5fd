package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/rsfind/internal/config"
	"github.com/jcdickinson/rsfind/internal/daemon"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Forget resolved \"latest\" versions, or with --all every cached crate",
	Run:   runClearCache,
}

var clearAll bool

func init() {
	clearCacheCmd.Flags().BoolVar(&clearAll, "all", false, "also drop cached archives and the crate ledger")
}

func runClearCache(cmd *cobra.Command, args []string) {
	client := daemon.NewClient(config.SocketPath())
	if !client.IsAvailable() {
		fmt.Println("daemon is not running")
		return
	}

	if err := client.ClearCache(context.Background(), clearAll); err != nil {
		slog.Error("failed to clear cache", "error", err)
		os.Exit(1)
	}
	if clearAll {
		fmt.Println("cache cleared")
		return
	}
	fmt.Println("version cache cleared")
}
