package main

import (
	"fmt"
	"os"

	"github.com/matheus3301/connect/internal/config"
	"github.com/matheus3301/connect/internal/daemon"
	"github.com/matheus3301/connect/internal/profile"
	flag "github.com/spf13/pflag"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.StringP("profile", "p", "", "profile name (overrides config default)")
	socketFlag := flag.String("socket", "", "socket path (defaults to the profile directory)")
	logLevelFlag := flag.String("log-level", "", "log level (debug, info, warn, error)")
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
	if *logLevelFlag != "" {
		cfg.LogLevel = *logLevelFlag
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			ProfileName: profileName,
			SocketPath:  *socketFlag,
			Config:      cfg,
		}),
	)

	app.Run()
}
