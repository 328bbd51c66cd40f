package cli

import (
	"flag"
)

// Args are the command-line arguments controlling one harness run.
type Args struct {
	// ConfigFile is an optional JSON/YAML config file overlaying env config.
	ConfigFile string

	// EnvFile is the .env file to load before reading the environment.
	EnvFile string

	// ServeAddr, when non-empty, keeps the process alive after the run
	// serving the results API on this address.
	ServeAddr string

	// Verbose enables debug logging (response bodies, headers).
	Verbose bool

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns Args. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*Args, error) {
	fs := flag.NewFlagSet("kensa", flag.ContinueOnError)
	var (
		configFile = fs.String("config", "", "Optional JSON or YAML config file")
		envFile    = fs.String("env", ".env", "Path to a .env file with environment overrides")
		serveAddr  = fs.String("serve", "", "Serve the results API on this address after the run (e.g. :8080)")
		verbose    = fs.Bool("verbose", false, "Enable debug logging")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Args{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
		ServeAddr:  *serveAddr,
		Verbose:    *verbose,
		RawArgs:    args,
	}, nil
}
