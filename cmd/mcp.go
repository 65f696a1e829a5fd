package cmd

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/rsfind/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as an MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connectDaemon()
		if err != nil {
			return err
		}

		srv := mcp.NewServer(client, Version, binaryName())
		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Run()
		}()
		return waitForSignal(errCh)
	},
}

// binaryName returns "rsfind" if it's in PATH and points to the current binary,
// otherwise returns the full path to the binary.
func binaryName() string {
	exe, err := os.Executable()
	if err != nil {
		return "rsfind"
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "rsfind"
	}

	onPath, err := exec.LookPath("rsfind")
	if err == nil {
		resolved, err := filepath.EvalSymlinks(onPath)
		if err == nil && resolved == exe {
			return "rsfind"
		}
	}

	return exe
}
