package app

import (
	"errors"
	"fmt"
	"os"
)

// writeGithubOutput appends the confirmed remote path to the step output
// file GitHub Actions points at via GITHUB_OUTPUT, so later workflow steps
// can reference it as steps.<id>.outputs.remote_path. Outside of a workflow
// the variable is unset and the call is a no-op.
func writeGithubOutput(remotePath string) error {
	outputFile := os.Getenv("GITHUB_OUTPUT")
	if outputFile == "" {
		return nil
	}

	f, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(f, "remote_path=%s\n", remotePath)
	return errors.Join(err, f.Close())
}
