package cmd

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/rsfind/internal/docs"
	"github.com/jcdickinson/rsfind/internal/index"
	"github.com/jcdickinson/rsfind/internal/rpc"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <crate>",
	Short: "Print every search key of a crate, one per line",
	Example: `  rsfind dump serde
  rsfind dump -V 1.40.0 tokio | grep spawn
  rsfind dump --file target/doc/mycrate.json`,
	Args: func(cmd *cobra.Command, args []string) error {
		if dumpFile != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Run: runDump,
}

var (
	dumpVersion string
	dumpFile    string
)

func init() {
	dumpCmd.Flags().StringVarP(&dumpVersion, "crate-version", "V", "", `crate version (default "latest")`)
	dumpCmd.Flags().StringVar(&dumpFile, "file", "", "dump a local rustdoc JSON file")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	if dumpFile != "" {
		raw, err := docs.Open(dumpFile)
		if err != nil {
			log.Fatalf("failed to read %s: %v", dumpFile, err)
		}
		crate, err := raw.Parse()
		if err != nil {
			log.Fatalf("failed to parse %s: %v", dumpFile, err)
		}
		if err := index.Build(crate).WriteKeys(w); err != nil {
			log.Fatalf("dump failed: %v", err)
		}
		return
	}

	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}
	if err := client.Dump(context.Background(), rpc.DumpRequest{Crate: args[0], Version: dumpVersion}, w); err != nil {
		log.Fatalf("dump failed: %v", err)
	}
}
