package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/rsfind/internal/config"
	"github.com/jcdickinson/rsfind/internal/daemon"
	"github.com/jcdickinson/rsfind/internal/db"
	"github.com/jcdickinson/rsfind/internal/docs"
	"github.com/jcdickinson/rsfind/internal/index"
	"github.com/jcdickinson/rsfind/internal/rpc"
)

// Version is the rsfind release, reported to MCP clients and by --version.
var Version = "0.1.0"

var (
	debug        bool
	format       string
	crateVersion string
	searchLimit  int
	searchFile   string
	searchKeys   bool
)

var rootCmd = &cobra.Command{
	Use:   "rsfind <crate> <query>",
	Short: "Fuzzy search Rust crate documentation by item path",
	Long: `Search a crate's items by path, fetching its rustdoc JSON from docs.rs on
first use. Crates are kept warm by a background daemon that is started
automatically.`,
	Example: `  rsfind serde Deserializer
  rsfind tokio task::spawn -n 5
  rsfind -V 1.0.210 serde de::Visitor
  rsfind --file target/doc/mycrate.json Config`,
	Version: Version,
	Args:    searchArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitializeViper(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		switch format {
		case "text", "json", "yaml":
			return nil
		default:
			return fmt.Errorf("unknown --format %q (want text, json or yaml)", format)
		}
	},
	Run: runSearch,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "run daemon in-process (visible log output)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "output format: text, json or yaml")

	rootCmd.Flags().StringVarP(&crateVersion, "crate-version", "V", "", `crate version (default "latest")`)
	rootCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "max results (default from config, -1 for all)")
	rootCmd.Flags().StringVar(&searchFile, "file", "", "search a local rustdoc JSON file instead of docs.rs")
	rootCmd.Flags().BoolVar(&searchKeys, "keys", false, "list every matching path instead of one result per item")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(clearCacheCmd)
	rootCmd.AddCommand(searchCratesCmd)
	rootCmd.AddCommand(mcpCmd)
}

// searchArgs accepts "<crate> <query>", or just "<query>" with --file.
func searchArgs(cmd *cobra.Command, args []string) error {
	if searchFile != "" {
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("with --file, expected [crate] <query>")
		}
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("expected <crate> <query>, got %d argument(s)", len(args))
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) {
	query := args[len(args)-1]

	if searchFile != "" {
		runFileSearch(query)
		return
	}

	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}
	ctx := context.Background()

	if searchKeys {
		resp, err := client.Keys(ctx, rpc.KeysRequest{Crate: args[0], Version: crateVersion, Query: query, Limit: searchLimit})
		if err != nil {
			log.Fatalf("search failed: %v", err)
		}
		printKeys(resp)
		return
	}

	resp, err := client.Search(ctx, rpc.SearchRequest{Crate: args[0], Version: crateVersion, Query: query, Limit: searchLimit})
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	printSearch(resp)
}

// runFileSearch indexes a local rustdoc file in-process; no daemon needed.
func runFileSearch(query string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	raw, err := docs.Open(searchFile)
	if err != nil {
		log.Fatalf("failed to read %s: %v", searchFile, err)
	}
	crate, err := raw.Parse()
	if err != nil {
		log.Fatalf("failed to parse %s: %v", searchFile, err)
	}
	ix := index.Build(crate, index.WithDocsBaseURL(cfg.Docs.PageURL))

	limit := searchLimit
	switch {
	case limit < 0:
		limit = index.NoLimit
	case limit == 0:
		limit = cfg.Search.Limit
	}

	version := ix.Version()
	if version == "" {
		version = "latest"
	}

	if searchKeys {
		resp := &rpc.KeysResponse{Crate: ix.Name(), Version: version}
		for _, r := range ix.SearchKeys(query, limit) {
			kr := rpc.KeyResult{Path: r.Path, Score: r.Score}
			if r.Item != nil {
				kr.ID = r.Item.ID.String()
			}
			resp.Results = append(resp.Results, kr)
		}
		printKeys(resp)
		return
	}

	resp := &rpc.SearchResponse{Crate: ix.Name(), Version: version}
	for _, it := range ix.Search(query, limit) {
		url, _ := it.URLWithBase(ix.DocsBaseURL())
		resp.Results = append(resp.Results, rpc.DocResult{
			URI:        docs.RsdocURI(ix.Name(), version, it.Path),
			URL:        url,
			Path:       it.QualifiedName(),
			Kind:       it.Kind.String(),
			Signature:  it.Signature,
			Deprecated: it.Deprecated(),
		})
	}
	printSearch(resp)
}

// connectDaemon returns a daemon client. In debug mode, starts the daemon
// in-process so all log output is visible in the terminal.
func connectDaemon() (*daemon.Client, error) {
	socketPath := config.SocketPath()

	if !debug {
		return daemon.ConnectOrSpawn(socketPath, config.LockPath())
	}

	// In debug mode: stop any existing daemon, then start in-process
	client := daemon.NewClient(socketPath)
	if client.IsAvailable() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client.Shutdown(shutdownCtx)
		cancel()
		time.Sleep(200 * time.Millisecond)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	database, err := db.New(config.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	srv := daemon.NewServer(cfg, database, socketPath, logger)
	go func() {
		if err := srv.Start(context.Background()); err != nil {
			log.Printf("in-process daemon error: %v", err)
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
		if client.IsAvailable() {
			return client, nil
		}
	}

	return nil, fmt.Errorf("in-process daemon did not start within 5 seconds")
}

func waitForSignal(errCh chan error) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		log.Printf("received signal: %s", sig)
		return nil
	case err := <-errCh:
		return err
	}
}
