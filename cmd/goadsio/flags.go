package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrpasztoradam/goadsio"
	"github.com/mrpasztoradam/goadsio/config"
)

type globalFlags struct {
	url           string
	configPath    string
	timeout       time.Duration
	logLevel      string
	logFormat     string
	noRouteRepair bool
}

func registerGlobalFlags(cmd *cobra.Command, flags *globalFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.url, "url", "", "PLC address, ads://host[:port]/[netid]:amsport")
	pf.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Timeout for connect and each request (default from config, 5s)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: json, text, console")
	pf.BoolVar(&flags.noRouteRepair, "no-route-repair", false, "Do not ask the PLC to add a route when it drops the connection")
}

// resolveConfig loads the config file, if any, and applies flag overrides.
func resolveConfig(flags *globalFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.url != "" {
		cfg.PLC.URL = flags.url
	}
	if flags.timeout > 0 {
		cfg.PLC.TimeoutSeconds = int((flags.timeout + time.Second - 1) / time.Second)
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	if flags.noRouteRepair {
		cfg.PLC.RouteRepair = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup resolves configuration and builds the logger and client.
func setup(cmd *cobra.Command, flags *globalFlags, extra ...goadsio.Option) (*config.Config, goadsio.Logger, *goadsio.Client, error) {
	cfg, err := resolveConfig(flags)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := goadsio.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := append(cfg.ClientOptions(), goadsio.WithLogger(logger))
	opts = append(opts, extra...)

	client, err := goadsio.New(cfg.PLC.URL, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, client, nil
}

// parseUint32 accepts decimal or 0x-prefixed hex.
func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(v), nil
}
