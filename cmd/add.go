package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/rsfind/internal/config"
	"github.com/jcdickinson/rsfind/internal/daemon"
	"github.com/jcdickinson/rsfind/internal/rpc"
)

var addCmd = &cobra.Command{
	Use:   "add [crate[@version] ...]",
	Short: "Index crate documentation ahead of time",
	Long: `Fetch and index Rust crate documentation from docs.rs, or load local rustdoc
JSON files with --file. Version defaults to "latest".`,
	Example: `  rsfind add serde
  rsfind add serde@1.0.210 tokio@1.40.0
  rsfind add --file target/doc/mycrate.json`,
	Run: runAdd,
}

var addFiles []string

func init() {
	addCmd.Flags().StringSliceVar(&addFiles, "file", nil, "local rustdoc JSON file to load (repeatable)")
}

func parseSpecs(args, files []string) ([]rpc.CrateSpec, error) {
	var specs []rpc.CrateSpec
	for _, arg := range args {
		name, version, _ := strings.Cut(arg, "@")
		if name == "" {
			return nil, fmt.Errorf("invalid crate %q", arg)
		}
		specs = append(specs, rpc.CrateSpec{Name: name, Version: version})
	}
	for _, f := range files {
		// The daemon may run in another working directory.
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		specs = append(specs, rpc.CrateSpec{File: abs})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("nothing to add: give crate names or --file")
	}
	return specs, nil
}

func runAdd(cmd *cobra.Command, args []string) {
	specs, err := parseSpecs(args, addFiles)
	if err != nil {
		log.Fatalf("%v", err)
	}

	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.AddCrates(context.Background(), specs, func(msg string) {
		if format == "text" {
			fmt.Printf("  %s\n", paint(dimStyle, msg))
		}
	})
	if err != nil {
		log.Fatalf("failed to add crates: %v", err)
	}

	printAddResults(resp.Results)
	for _, r := range resp.Results {
		if r.Error != "" {
			os.Exit(1)
		}
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show known crates and daemon state",
	Run:   runStatus,
}

func runStatus(cmd *cobra.Command, args []string) {
	client := daemon.NewClient(config.SocketPath())
	if !client.IsAvailable() {
		fmt.Println("daemon is not running")
		return
	}

	resp, err := client.Status(context.Background())
	if err != nil {
		log.Fatalf("status failed: %v", err)
	}

	if printStructured(os.Stdout, resp) {
		return
	}

	fmt.Printf("daemon pid %d, up %s\n", resp.PID, resp.Uptime)
	if len(resp.Crates) == 0 {
		fmt.Println("no crates indexed")
		return
	}

	for _, c := range resp.Crates {
		state := "cached"
		if c.Loaded {
			state = "loaded from " + c.Source
		}
		fmt.Printf("  %s@%s [%s] %d keys, %d items\n", paint(pathStyle, c.Name), c.Version, state, c.Keys, c.Items)
	}
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	Run:   runStop,
}

func runStop(cmd *cobra.Command, args []string) {
	client := daemon.NewClient(config.SocketPath())
	if !client.IsAvailable() {
		fmt.Println("daemon is not running")
		return
	}

	// Connection reset is expected, the daemon exits after responding
	client.Shutdown(context.Background())
	fmt.Println("daemon stopped")
}
