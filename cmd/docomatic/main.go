// Doc-O-Matic: structured documentation MCP server
//
// A universal MCP server that integrates with any AI coding tool
// (Claude Code, OpenCode, Gemini CLI, Codex, Cursor, VS Code Copilot)
// to manage hierarchical documents with sections, cross-system links,
// full-text search, and GitHub export.
//
// Usage:
//
//	docomatic serve                 # Start MCP server (stdio transport)
//	docomatic serve --http :8005    # Start MCP server (streamable HTTP)
//	docomatic update                # Update to the latest version
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/docomatic/docomatic/internal/config"
	docserver "github.com/docomatic/docomatic/internal/server"
	"github.com/docomatic/docomatic/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		fs := flag.NewFlagSet("serve", flag.ExitOnError)
		configPath := fs.String("config", "", "config file path (default ~/.docomatic/config.toml)")
		httpAddr := fs.String("http", "", "serve MCP over streamable HTTP on this address instead of stdio")
		_ = fs.Parse(os.Args[2:])

		if err := run(*configPath, *httpAddr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("docomatic v%s\n", docserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run(configPath, httpAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	s, cleanup, err := docserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check. It prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	if httpAddr == "" {
		httpAddr = cfg.Server.HTTPAddr
	}
	if httpAddr != "" {
		return serveHTTP(s, httpAddr)
	}

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}

// serveHTTP runs the MCP server over streamable HTTP with a health
// endpoint alongside, shutting down cleanly on interrupt.
func serveHTTP(s *server.MCPServer, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(s))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","service":"docomatic"}`))
	})

	httpServer := &http.Server{Addr: addr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "docomatic v%s listening on %s (MCP at /mcp, health at /health)\n",
		docserver.Version, addr)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. This runs in a goroutine during
// "serve" and is best-effort; network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(docserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: docomatic update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	result := updater.CheckVersion(docserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(docserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart docomatic to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Doc-O-Matic v%s — structured documentation MCP server

Usage:
  docomatic serve             Start the MCP server (stdio transport)
  docomatic serve --http ADDR Start the MCP server (streamable HTTP on ADDR)
  docomatic update            Update to the latest version

Flags for serve:
  --config PATH   Config file (default ~/.docomatic/config.toml)
  --http ADDR     Listen address for streamable HTTP, e.g. :8005

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "docomatic": {
        "command": "docomatic",
        "args": ["serve"]
      }
    }
  }

  GITHUB_TOKEN enables the export_to_github tool without passing a
  token per call. See ~/.docomatic/config.toml for database, logging,
  and scheduled backup settings.

Learn more: https://github.com/docomatic/docomatic
`, docserver.Version)
}
