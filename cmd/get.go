package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/rsfind/internal/daemon"
	"github.com/jcdickinson/rsfind/internal/docs"
	"github.com/jcdickinson/rsfind/internal/rpc"
)

var getCmd = &cobra.Command{
	Use:   "get <rsdoc://crate/version/path>",
	Short: "Read a documentation item by URI",
	Example: `  rsfind get rsdoc://serde/latest/serde::Serialize
  rsfind get rsdoc://tokio/1.40.0/tokio::spawn
  rsfind get serde/latest/serde::de::Visitor`,
	Args: cobra.ExactArgs(1),
	Run:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	uri := args[0]
	if !strings.HasPrefix(uri, docs.URIScheme) {
		uri = docs.URIScheme + uri
	}
	if _, _, _, err := docs.ParseRsdocURI(uri); err != nil {
		log.Fatalf("%v", err)
	}

	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.GetDoc(context.Background(), rpc.GetDocRequest{URI: uri})
	if err != nil {
		var derr *daemon.Error
		if errors.As(err, &derr) && derr.NotFound() {
			fmt.Fprintf(os.Stderr, "not found: %s\n", derr.Message)
			os.Exit(1)
		}
		log.Fatalf("get doc failed: %v", err)
	}

	if printStructured(os.Stdout, resp) {
		return
	}
	fmt.Print(resp.Markdown)
}
