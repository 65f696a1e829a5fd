package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jcdickinson/rsfind/internal/config"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the daemon log",
	Example: `  rsfind logs -n 100
  rsfind logs -f --level warn`,
	Run: runLogs,
}

var (
	logsFollow bool
	logsLines  int
	logsLevel  string
)

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "minimum level to show (default log.level)")
}

var levelStyles = map[string]lipgloss.Style{
	"DEBUG": dimStyle,
	"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	"ERROR": errorStyle,
}

const followInterval = 250 * time.Millisecond

func runLogs(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	minLevel := cfg.Log.Level
	if logsLevel != "" {
		if err := minLevel.UnmarshalText([]byte(logsLevel)); err != nil {
			log.Fatalf("invalid --level %q: %v", logsLevel, err)
		}
	}

	f, err := os.Open(config.LogPath())
	if errors.Is(err, os.ErrNotExist) {
		fmt.Println("no log file found (daemon may not have run yet)")
		return
	}
	if err != nil {
		log.Fatalf("failed to open log: %v", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	lines, partial, err := tailLines(r, logsLines, minLevel)
	if err != nil {
		log.Fatalf("failed to read log: %v", err)
	}
	for _, line := range lines {
		fmt.Println(styleLogLine(line))
	}
	if !logsFollow {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := followLines(ctx, r, partial, minLevel, func(line string) {
		fmt.Println(styleLogLine(line))
	}); err != nil {
		log.Fatalf("failed to follow log: %v", err)
	}
}

// tailLines reads r to EOF and keeps the last n lines at or above minLevel.
// A trailing line without a newline is returned as partial.
func tailLines(r *bufio.Reader, n int, minLevel slog.Level) (lines []string, partial string, err error) {
	for {
		line, err := r.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return lines, line, nil
		}
		if err != nil {
			return nil, "", err
		}
		line = strings.TrimRight(line, "\r\n")
		if !showLine(line, minLevel) {
			continue
		}
		lines = append(lines, line)
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
}

// followLines polls r for appended lines until ctx is done.
func followLines(ctx context.Context, r *bufio.Reader, partial string, minLevel slog.Level, emit func(string)) error {
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	for {
		chunk, err := r.ReadString('\n')
		partial += chunk
		switch {
		case err == nil:
			line := strings.TrimRight(partial, "\r\n")
			partial = ""
			if showLine(line, minLevel) {
				emit(line)
			}
			continue
		case !errors.Is(err, io.EOF):
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// lineLevel extracts the level=... attribute written by slog's text handler.
func lineLevel(line string) (slog.Level, bool) {
	_, rest, ok := strings.Cut(line, "level=")
	if !ok {
		return 0, false
	}
	field, _, _ := strings.Cut(rest, " ")
	var level slog.Level
	if err := level.UnmarshalText([]byte(field)); err != nil {
		return 0, false
	}
	return level, true
}

// showLine keeps lines below no level; output without a level (such as a
// panic on the daemon's stderr) is always shown.
func showLine(line string, minLevel slog.Level) bool {
	level, ok := lineLevel(line)
	return !ok || level >= minLevel
}

func styleLogLine(line string) string {
	if !styled {
		return line
	}
	for name, style := range levelStyles {
		token := "level=" + name
		if strings.Contains(line, token) {
			return strings.Replace(line, token, style.Render(token), 1)
		}
	}
	return line
}
