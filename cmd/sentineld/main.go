package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btclog/v2"
	"github.com/kestrel-systems/sentinel/internal/actor"
	"github.com/kestrel-systems/sentinel/internal/build"
	"github.com/kestrel-systems/sentinel/internal/registry"
	"github.com/kestrel-systems/sentinel/internal/supervisor"
)

func main() {
	var (
		logDir         = flag.String("log-dir", "~/.sentinel/logs", "Directory for log files (empty to disable file logging)")
		maxLogFiles    = flag.Int("max-log-files", build.DefaultMaxLogFiles, "Maximum number of rotated log files to keep")
		maxLogFileSize = flag.Int("max-log-file-size", build.DefaultMaxLogFileSize, "Maximum log file size in MB before rotation")
		mailboxSize    = flag.Int("mailbox-size", 0, "Mailbox capacity of the root supervisor (0: package default)")
		strategyFlag   = flag.String("strategy", "one_for_one", "Root supervisor restart strategy: one_for_one, one_for_all, rest_for_one")
		maxRestarts    = flag.Int("max-restarts", 3, "Root supervisor restart-intensity budget: restarts tolerated per window")
		maxSeconds     = flag.Float64("max-seconds", 5, "Root supervisor restart-intensity window, in seconds")
	)
	flag.Parse()

	logDirExpanded := expandHome(*logDir)

	var logRotator *build.RotatingLogWriter
	if logDirExpanded != "" {
		logRotator = build.NewRotatingLogWriter()
		err := logRotator.InitLogRotator(&build.LogRotatorConfig{
			LogDir:         logDirExpanded,
			MaxLogFiles:    *maxLogFiles,
			MaxLogFileSize: *maxLogFileSize,
		})
		if err != nil {
			log.Printf(
				"Failed to init log rotator: %v "+
					"(continuing without file logging)",
				err,
			)
			logRotator = nil
		} else {
			defer logRotator.Close()

			multiWriter := io.MultiWriter(os.Stderr, logRotator)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags)
		}
	}

	log.Printf("sentineld version %s commit=%s go=%s",
		build.Version(), commitInfo(), build.GoVersion,
	)

	var btclogHandlers []btclog.Handler
	consoleHandler := btclog.NewDefaultHandler(os.Stderr)
	btclogHandlers = append(btclogHandlers, consoleHandler)

	if logRotator != nil {
		fileHandler := btclog.NewDefaultHandler(logRotator)
		btclogHandlers = append(btclogHandlers, fileHandler)

		log.Printf(
			"Log file rotation enabled: dir=%s, max_files=%d, max_size=%dMB",
			logDirExpanded, *maxLogFiles, *maxLogFileSize,
		)
	}

	combinedHandler := build.NewHandlerSet(btclogHandlers...)
	rootLogger := btclog.NewSLogger(combinedHandler)

	actor.UseLogger(rootLogger.WithPrefix("ACTR"))
	supervisor.UseLogger(rootLogger.WithPrefix("SUPV"))
	registry.UseLogger(rootLogger.WithPrefix("REGY"))

	strategy, err := parseStrategy(*strategyFlag)
	if err != nil {
		log.Fatalf("Invalid strategy: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	names := registry.New()

	root, err := supervisor.New(ctx, supervisor.Options{
		Strategy:    strategy,
		MaxRestarts: *maxRestarts,
		MaxSeconds:  *maxSeconds,
		Name:        "root",
		Capacity:    *mailboxSize,
	})
	if err != nil {
		log.Fatalf("Failed to start root supervisor: %v", err)
	}
	if err := names.Register("root", root); err != nil {
		log.Fatalf("Failed to register root supervisor: %v", err)
	}
	log.Println("Root supervisor started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf(
			"Received %v, initiating graceful shutdown "+
				"(send again to force exit)...", sig,
		)
		cancel()

		sig = <-sigCh
		log.Printf("Received %v again, forcing immediate exit", sig)
		os.Exit(1)
	}()

	<-ctx.Done()

	// Give in-flight shutdowns cascading through the supervision tree a
	// bounded window to finish before the process exits.
	time.Sleep(200 * time.Millisecond)
	log.Println("sentineld exiting")
}

// expandHome resolves a leading "~" to the user's home directory.
func expandHome(path string) string {
	expanded := os.ExpandEnv(path)
	if expanded == path && len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		expanded = home + path[1:]
	}
	return expanded
}

// parseStrategy maps a flag string to a supervisor.Strategy.
func parseStrategy(s string) (supervisor.Strategy, error) {
	switch s {
	case "one_for_one":
		return supervisor.OneForOne, nil
	case "one_for_all":
		return supervisor.OneForAll, nil
	case "rest_for_one":
		return supervisor.RestForOne, nil
	default:
		return "", fmt.Errorf("unrecognised strategy %q", s)
	}
}

// commitInfo returns the best available commit identifier. It prefers the
// Commit string set via ldflags (which includes tag info), falling back to
// the VCS commit hash from runtime/debug.
func commitInfo() string {
	if build.Commit != "" {
		return build.Commit
	}
	if build.CommitHash != "" {
		return build.CommitHash
	}
	return "dev"
}
