package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/semmidev/vaultkeep/internal/config"
)

// CommandSource runs an external command and parses its stdout as JSON, for
// example a script that exports application state.
type CommandSource struct {
	config *config.SourceConfig
}

func NewCommand(cfg *config.SourceConfig) *CommandSource {
	return &CommandSource{config: cfg}
}

func (c *CommandSource) Fetch(ctx context.Context) (any, error) {
	cmd := exec.CommandContext(ctx, c.config.Command, c.config.Args...)
	cmd.Env = append(os.Environ(), c.config.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w, output: %s", c.config.Command, err, strings.TrimSpace(stderr.String()))
	}

	data, err := decode(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%s output is not valid JSON: %w", c.config.Command, err)
	}
	return data, nil
}

func (c *CommandSource) GetName() string {
	return c.config.Name
}

func (c *CommandSource) GetType() string {
	return config.SourceCommand
}

func (c *CommandSource) Ping(ctx context.Context) error {
	if _, err := exec.LookPath(c.config.Command); err != nil {
		return fmt.Errorf("%s not found: %w", c.config.Command, err)
	}
	return nil
}
