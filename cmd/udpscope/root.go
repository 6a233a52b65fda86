package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for udpscope.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "udpscope",
		Short: "Send UDP datagrams and classify what comes back",
		Long: `udpscope is a bidirectional UDP endpoint.

Every received datagram is analyzed without prior knowledge of its format:
it is classified as text, JSON or binary, decoded under a list of candidate
encodings, and its first four bytes are shown as big- and little-endian
integers. Running statistics (packets, bytes, rates) are kept per session.

Settings are read from a .udpscope file (see 'udpscope init') and can be
overridden by flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP(flagVerbose, "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP(flagConfig, "c", "",
		"Configuration file path (default: .udpscope in current, XDG config or home directory)")
	cmd.PersistentFlags().Bool(flagJSONLog, false, "Write logs as JSON lines")

	cmd.AddCommand(NewListenCmd())
	cmd.AddCommand(NewSendCmd())
	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
