// Package cmd provides CLI commands for bookchat.
//
// Commands:
//   - serve: HTTP API server for textbook Q&A
//   - migrate: run database migrations and exit
//   - version: show version and configuration
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/studyfork/bookchat/internal/log"
)

// Execute is the main entry point for the bookchat CLI.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level, JSON: os.Getenv("LOG_JSON") != ""}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "migrate":
		return runMigrate()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("bookchat - Q&A service for the Physical AI textbook")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bookchat serve [addr]  Start HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  bookchat migrate       Run database migrations and exit")
	fmt.Println("  bookchat --version     Show version information")
	fmt.Println("  bookchat --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY         Required: Gemini API key")
	fmt.Println("  BOOKCHAT_*             Optional: configuration overrides")
	fmt.Println("  DEBUG                  Optional: enable debug logging")
	fmt.Println("  LOG_JSON               Optional: JSON log output")
}
