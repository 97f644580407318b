package network

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReset(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	testCases := []struct {
		name        string
		commands    [][]string
		expectError bool
	}{
		{name: "none"},
		{name: "ok", commands: [][]string{{"true"}, {}, {"sh", "-c", "exit 0"}}},
		{name: "failure", commands: [][]string{{"true"}, {"false"}}, expectError: true},
		{name: "missing binary", commands: [][]string{{"/nonexistent/ip"}}, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewNetworkService(tc.commands, log).Reset(context.Background())
			if tc.expectError {
				require.Error(t, err)

				return
			}
			require.NoError(t, err)
		})
	}
}
