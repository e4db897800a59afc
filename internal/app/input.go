package app

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/dropship/internal/common"
	"github.com/dmitrijs2005/dropship/internal/config"
)

// readPassword and isTerminal are test seams for the terminal helpers.
// In tests you can replace them with stubs to avoid touching the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// resolveToken returns the Dropbox access token to use. When no credential
// is configured and stdin is an interactive terminal, the user is prompted
// once, without echo. In non-interactive runs a missing credential is an
// authentication failure.
func resolveToken(cfg *config.Config) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.AppKey != "" && cfg.AppSecret != "" && cfg.RefreshToken != "" {
		// The refresh triple carries its own credential.
		return "", nil
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("%w: no access token configured", common.ErrAuthFailed)
	}

	return promptToken(os.Stderr)
}

// promptToken prints a prompt to w and reads the token from the user's
// terminal without echo. A newline is printed after the read to keep the
// output tidy.
func promptToken(w *os.File) (string, error) {
	if _, err := fmt.Fprint(w, "Dropbox access token: "); err != nil {
		return "", err
	}
	raw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("%w: reading token: %w", common.ErrAuthFailed, err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("%w: empty token", common.ErrAuthFailed)
	}
	return token, nil
}
