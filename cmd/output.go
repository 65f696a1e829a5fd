package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/jcdickinson/rsfind/internal/rpc"
)

var (
	pathStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	kindStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	deprecatedStyle = lipgloss.NewStyle().Strikethrough(true)
	dimStyle        = lipgloss.NewStyle().Faint(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// styled is true when stdout is a terminal; pipes get plain text.
var styled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func paint(s lipgloss.Style, text string) string {
	if !styled {
		return text
	}
	return s.Render(text)
}

// printStructured writes v as JSON or YAML per --format. It returns false in
// text mode so the caller prints its own rendering.
func printStructured(w io.Writer, v any) bool {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			log.Fatalf("encoding output: %v", err)
		}
		return true
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			log.Fatalf("encoding output: %v", err)
		}
		enc.Close()
		return true
	}
	return false
}

func printSearch(resp *rpc.SearchResponse) {
	if printStructured(os.Stdout, resp) {
		return
	}
	writeSearch(os.Stdout, resp)
}

func writeSearch(w io.Writer, resp *rpc.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintf(w, "no results in %s@%s\n", resp.Crate, resp.Version)
		return
	}
	for _, r := range resp.Results {
		path := paint(pathStyle, r.Path)
		if r.Deprecated {
			path = paint(deprecatedStyle, r.Path)
		}
		fmt.Fprintf(w, "%s %s\n", path, paint(kindStyle, "("+r.Kind+")"))
		if r.Signature != "" {
			for _, line := range strings.Split(r.Signature, "\n") {
				fmt.Fprintf(w, "    %s\n", paint(signatureStyle, line))
			}
		}
		if r.Summary != "" {
			fmt.Fprintf(w, "    %s\n", r.Summary)
		}
		fmt.Fprintf(w, "    %s\n", paint(dimStyle, r.URI))
	}
}

func printKeys(resp *rpc.KeysResponse) {
	if printStructured(os.Stdout, resp) {
		return
	}
	writeKeys(os.Stdout, resp)
}

func writeKeys(w io.Writer, resp *rpc.KeysResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintf(w, "no results in %s@%s\n", resp.Crate, resp.Version)
		return
	}
	for _, r := range resp.Results {
		fmt.Fprintf(w, "%5d  %s %s\n", r.Score, paint(pathStyle, r.Path), paint(dimStyle, "#"+r.ID))
	}
}

func printAddResults(results []rpc.CrateResult) {
	if printStructured(os.Stdout, results) {
		return
	}
	for _, r := range results {
		if r.Error != "" {
			fmt.Printf("  %s@%s: %s\n", r.Name, r.Version, paint(errorStyle, "error: "+r.Error))
		} else {
			fmt.Printf("  %s@%s: %d keys, %d items (%s)\n", paint(pathStyle, r.Name), r.Version, r.Keys, r.Items, r.Source)
		}
	}
}
