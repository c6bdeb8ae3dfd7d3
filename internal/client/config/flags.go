package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/passvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only -a, -t and -r are taken from args.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "address and port of the server")
	fs.DurationVar(&cfg.DialTimeout, "t", cfg.DialTimeout, "dial timeout")
	fs.DurationVar(&cfg.ReadTimeout, "r", cfg.ReadTimeout, "reply timeout")

	return fs.Parse(args)
}
