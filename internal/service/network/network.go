package network

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

const (
	serviceName = "network"
)

type NetworkService struct {
	commands [][]string
	log      *slog.Logger
}

func NewNetworkService(commands [][]string, log *slog.Logger) *NetworkService {
	return &NetworkService{
		commands: commands,
		log:      log.With(slog.String("service", serviceName)),
	}
}

// Reset runs the configured commands in order and stops at the first failure.
func (n *NetworkService) Reset(ctx context.Context) error {
	if len(n.commands) < 1 {
		n.log.Warn("No network reset commands configured")

		return nil
	}

	for _, argv := range n.commands {
		if len(argv) < 1 {
			continue
		}

		out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
		if err != nil {
			n.log.Error("Network reset command failed", slog.String("cmd", strings.Join(argv, " ")),
				slog.String("output", strings.TrimSpace(string(out))), slog.Any("error", err))

			return fmt.Errorf("cannot run %s: %w", argv[0], err)
		}
		n.log.Debug("Network reset command done", slog.String("cmd", strings.Join(argv, " ")))
	}

	return nil
}
