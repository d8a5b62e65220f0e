// repflow-mcp is a stdio MCP bridge: it runs locally next to the client and
// serves tools backed by a remote RepFlow server's REST API, typically over
// Tailscale.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/repflow/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RepFlow server URL (e.g. https://repflow.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("REPFLOW_AUTH_API_KEY"), "API key for session endpoints")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repflow-mcp", Version)
		return
	}

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: repflow-mcp -server <URL> [-api-key <key>]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Logs go to stderr; stdout carries the MCP stream.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ds := mcp.NewHTTPClient(*serverURL, *apiKey)
	s := mcp.New(ds, Version, log)

	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
