package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/connect/internal/config"
	"github.com/matheus3301/connect/internal/logging"
	"github.com/matheus3301/connect/internal/profile"
	"github.com/matheus3301/connect/internal/tui"
	"github.com/matheus3301/connect/internal/tui/client"
	flag "github.com/spf13/pflag"
)

func main() {
	profileFlag := flag.StringP("profile", "p", "", "profile name (overrides config default)")
	screenFlag := flag.String("display-screen", "", "host screen that renders in-product messages")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadWithEnv(profile.ConfigPath(), profile.EnvPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}
	displayScreen := cfg.IPM.DisplayScreen
	if *screenFlag != "" {
		displayScreen = *screenFlag
	}

	socketPath := profile.SocketPath(profileName)

	// Probe daemon health; auto-start if needed.
	if !client.Probe(socketPath, 2*time.Second) {
		fmt.Fprintf(os.Stderr, "daemon not running for profile %q, starting...\n", profileName)
		if err := startDaemon(profileName); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}
		if !waitForDaemon(socketPath, 10*time.Second) {
			fmt.Fprintf(os.Stderr, "daemon did not become ready\n")
			os.Exit(1)
		}
	}

	logger, err := logging.NewFile(profile.TUILogPath(profileName), profileName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open log: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	app := tui.NewApp(c, tui.Options{
		Profile:       profileName,
		DisplayScreen: displayScreen,
		Logger:        logger,
	})
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func startDaemon(profileName string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	connectd := filepath.Join(filepath.Dir(executable), "connectd")

	if _, err := os.Stat(connectd); err != nil {
		connectd = "connectd"
	}

	cmd := exec.Command(connectd, "--profile", profileName)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon polls the daemon with a real status call, not just a socket connect.
func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if client.Probe(socketPath, 2*time.Second) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
