package config

import (
	"flag"
	"os"
	"time"

	"github.com/avigliano/scontrino/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-u string   portal base URL
//	-t int      portal request timeout, seconds
//	-k int      active encryption key version
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with subcommand arguments.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-u", "-t", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.PortalBaseURL, "u", config.PortalBaseURL, "portal base URL")

	portalTimeout := fs.Int("t", int(config.PortalTimeout.Seconds()), "portal request timeout (in seconds)")
	fs.IntVar(&config.ActiveKeyVersion, "k", config.ActiveKeyVersion, "active encryption key version")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.PortalTimeout = time.Duration(*portalTimeout) * time.Second
}
