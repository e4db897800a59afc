package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/dropship/internal/flagx"
)

// valueFlags and boolFlags list every flag the CLI accepts, so positional
// arguments can be told apart from flag values.
var (
	valueFlags = []string{"-f", "-folder", "-n", "-name", "-t", "-token", "-backend", "-attempts", "-delay"}
	boolFlags  = []string{"-no-overwrite", "-v", "-q"}
)

// parseFlags populates Config fields from command-line flags and the
// positional file argument.
//
// Supported flags:
//
//	-f, -folder string   destination folder (e.g. "/Reports/2024")
//	-n, -name string     remote filename override
//	-t, -token string    Dropbox access token
//	-backend string      storage backend: "dropbox" or "s3"
//	-attempts int        max transfer attempts
//	-delay int           delay between attempts, seconds
//	-no-overwrite        fail if the remote file already exists
//	-v                   verbose (debug) logging
//	-q                   quiet mode, errors only
//
// The first positional argument is the local file to upload. The function
// filters os.Args to only the flags it recognizes using flagx.FilterArgs,
// avoiding collisions with the -c/-config flags handled elsewhere.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], valueFlags, boolFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Folder, "f", config.Folder, "destination folder")
	fs.StringVar(&config.Folder, "folder", config.Folder, "destination folder")
	fs.StringVar(&config.Filename, "n", config.Filename, "remote filename override")
	fs.StringVar(&config.Filename, "name", config.Filename, "remote filename override")
	fs.StringVar(&config.Token, "t", config.Token, "access token")
	fs.StringVar(&config.Token, "token", config.Token, "access token")
	fs.StringVar(&config.Backend, "backend", config.Backend, "storage backend (dropbox or s3)")
	fs.IntVar(&config.MaxAttempts, "attempts", config.MaxAttempts, "max transfer attempts")

	delay := fs.Int("delay", int(config.RetryDelay.Seconds()), "delay between attempts (in seconds)")

	fs.BoolVar(&config.NoOverwrite, "no-overwrite", config.NoOverwrite, "fail if the remote file exists")
	fs.BoolVar(&config.Verbose, "v", config.Verbose, "verbose logging")
	fs.BoolVar(&config.Quiet, "q", config.Quiet, "quiet mode, errors only")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RetryDelay = time.Duration(*delay) * time.Second

	// -c/-config take values too; without them here their paths would be
	// mistaken for positionals.
	all := append(append([]string{}, valueFlags...), "-c", "-config")
	if pos := flagx.Positionals(os.Args[1:], all, boolFlags); len(pos) > 0 {
		config.LocalPath = pos[0]
	}
}
