package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jarredhawkins/gherkin-lsp/internal/lsp"
)

var (
	logFile string
	debug   bool
	noWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.ErrOrStderr())
	},
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&logFile, "log", "", "Log file path (defaults to stderr)")
		c.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
		c.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch step and feature files")
	}
	rootCmd.AddCommand(serveCmd)
}

func runServe(stderr io.Writer) error {
	logOut := stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	slog.SetDefault(newLogger(logOut, debug))

	slog.Info("gherkin-lsp starting", "root", rootFlag, "watch", !noWatch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			slog.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	server := lsp.NewServer(lsp.Options{Root: rootFlag, Watch: !noWatch})
	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("LSP server error: %w", err)
	}

	slog.Info("gherkin-lsp shutdown complete")
	return nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, AddSource: debug}))
}
