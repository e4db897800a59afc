// Package app wires configuration, logging, the storage backend and the
// upload engine into the CLI entrypoint, and maps failures to exit codes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/dropship/internal/backend"
	"github.com/dmitrijs2005/dropship/internal/backend/dropbox"
	"github.com/dmitrijs2005/dropship/internal/backend/s3"
	"github.com/dmitrijs2005/dropship/internal/common"
	"github.com/dmitrijs2005/dropship/internal/config"
	"github.com/dmitrijs2005/dropship/internal/logging"
	"github.com/dmitrijs2005/dropship/internal/uploader"
)

// Exit codes reported to the calling shell.
const (
	ExitOK          = 0
	ExitNotFound    = 1
	ExitAuth        = 2
	ExitUpload      = 3
	ExitInternal    = 4
	ExitUnknown     = 99
	ExitInterrupted = 130
)

type App struct {
	config *config.Config
	logger logging.Logger
	stdout io.Writer

	// newClient is a test seam for backend construction.
	newClient func(ctx context.Context, cfg *config.Config) (backend.Client, error)
}

// NewApp builds the application around cfg. Logs go to stderr so stdout
// stays reserved for the confirmed remote path.
func NewApp(cfg *config.Config) *App {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	if cfg.Quiet {
		level = slog.LevelError
	}

	return &App{
		config:    cfg,
		logger:    logging.NewTextLogger(os.Stderr, level),
		stdout:    os.Stdout,
		newClient: newBackendClient,
	}
}

// Run performs the upload and returns the process exit code. SIGINT and
// SIGTERM cancel the context and surface as the interrupted exit code.
func (app *App) Run(ctx context.Context) int {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := app.newClient(ctx, app.config)
	if err != nil {
		return app.fail(ctx, err)
	}

	up := uploader.New(client, app.logger, app.config.MaxAttempts, app.config.RetryDelay)
	defer up.Close()

	remotePath, err := up.Upload(ctx, uploader.Request{
		LocalPath: app.config.LocalPath,
		Folder:    app.config.Folder,
		Filename:  app.config.Filename,
		Overwrite: !app.config.NoOverwrite,
	})
	if err != nil {
		return app.fail(ctx, err)
	}

	fmt.Fprintln(app.stdout, remotePath)

	if err := writeGithubOutput(remotePath); err != nil {
		app.logger.Warn(ctx, "could not write GITHUB_OUTPUT", "error", err)
	}

	return ExitOK
}

func (app *App) fail(ctx context.Context, err error) int {
	app.logger.Error(ctx, err.Error())
	return exitCode(err)
}

// exitCode maps an upload failure onto the documented exit codes.
// Cancellation takes precedence: an interrupted transfer is reported as
// interrupted even when wrapped in another failure.
func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, common.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, common.ErrAuthFailed):
		return ExitAuth
	case errors.Is(err, common.ErrUploadFailed):
		return ExitUpload
	case errors.Is(err, common.ErrInternal):
		return ExitInternal
	}
	return ExitUnknown
}

// newBackendClient builds the storage backend selected in cfg.
func newBackendClient(ctx context.Context, cfg *config.Config) (backend.Client, error) {
	switch cfg.Backend {
	case "dropbox":
		token, err := resolveToken(cfg)
		if err != nil {
			return nil, err
		}
		return dropbox.NewClient(ctx, dropbox.Credentials{
			AccessToken:  token,
			AppKey:       cfg.AppKey,
			AppSecret:    cfg.AppSecret,
			RefreshToken: cfg.RefreshToken,
		})
	case "s3":
		return s3.NewClient(ctx, s3.Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	}
	return nil, fmt.Errorf("%w: unknown backend %q", common.ErrInternal, cfg.Backend)
}
