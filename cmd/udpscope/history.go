package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/udpscope/internal/database"
	"github.com/nao1215/udpscope/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved session summaries",
		Long: `History lists sessions stored by 'udpscope listen --save-session' or
'udpscope chat --save-session', newest first.

Only aggregate counters are stored: bound address, start and end time, packet
and byte totals, and how many packets carried each format.

Examples:
  # Show the 20 most recent sessions
  udpscope history

  # Show one session in detail as JSON
  udpscope history --id 4f1c2a9e-... --json

  # Markdown table of the last 5 sessions
  udpscope history -n 5 --markdown`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", database.DefaultListLimit, "Maximum number of sessions to list")
	cmd.Flags().String("id", "", "Show only the session with this ID")
	addReportFlags(cmd)
	addSessionFlags(cmd, false)

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}

	return runHistory(commandContext(cmd), e, id, limit)
}

// runHistory prints stored sessions. A missing database means no sessions.
func runHistory(ctx context.Context, e *env, id string, limit int) error {
	writer, closeFn, err := e.reportWriter()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			e.logger.Warn("failed to close report file", "error", err)
		}
	}()

	sessions, err := loadSessions(ctx, e.cfg.DBDir, id, limit)
	if err != nil {
		return err
	}

	_, err = writer.WriteSessions(sessions)
	return err
}

func loadSessions(ctx context.Context, dbDir, id string, limit int) ([]model.SessionSummary, error) {
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		if id != "" {
			return nil, fmt.Errorf("%w: %s", database.ErrSessionNotFound, id)
		}
		return []model.SessionSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if id != "" {
		s, err := db.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		return []model.SessionSummary{s}, nil
	}
	return db.ListSessions(ctx, limit)
}
