package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vango-go/vocaiyze/pkg/store"
)

var (
	historyLimit   int
	historySession string
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	idStyle     = lipgloss.NewStyle().Width(38)
	timeStyle   = lipgloss.NewStyle().Width(21)
	countStyle  = lipgloss.NewStyle().Width(6).Align(lipgloss.Right)
)

const previewChars = 48

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored conversation sessions",
	Long: `history lists the sessions recorded in the transcript store
(VOCAIYZE_STORE_DSN). With --session it prints one session's messages.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closeLog, err := setup(opts)
		if err != nil {
			return err
		}
		defer closeLog()
		if cfg.StoreDSN == "" {
			return errors.New("VOCAIYZE_STORE_DSN is not set")
		}
		st, err := store.Open(cmd.Context(), cfg.StoreDSN, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		if historySession != "" {
			return printSession(cmd.Context(), st, historySession, cmd.OutOrStdout())
		}
		return printSessions(cmd.Context(), st, historyLimit, cmd.OutOrStdout())
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum sessions to list (0 for all)")
	historyCmd.Flags().StringVar(&historySession, "session", "", "print the messages of this session")
}

func printSessions(ctx context.Context, st *store.Store, limit int, out io.Writer) error {
	sessions, err := st.ListSessions(ctx, limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, statusStyle.Render("no sessions recorded"))
		return nil
	}
	fmt.Fprintln(out, headerStyle.Render(sessionRow("SESSION", "STARTED", "MSGS", "LAST")))
	for _, s := range sessions {
		fmt.Fprintln(out, sessionRow(
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprint(s.Messages),
			preview(s.LastText),
		))
	}
	return nil
}

func sessionRow(id, started, count, last string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		idStyle.Render(id),
		timeStyle.Render(started),
		countStyle.Render(count),
		"  "+last,
	)
}

func printSession(ctx context.Context, st *store.Store, id string, out io.Writer) error {
	msgs, err := st.Messages(ctx, id)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return fmt.Errorf("session %s has no messages", id)
	}
	for _, m := range msgs {
		label := m.Speaker.String()
		if m.Language != "" {
			label += " (" + m.Language + ")"
		}
		fmt.Fprintf(out, "%s %s %s\n",
			statusStyle.Render(m.Timestamp.Local().Format("15:04:05")),
			selfStyle.Render(label+":"),
			m.Text)
	}
	return nil
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= previewChars {
		return text
	}
	return string(r[:previewChars-1]) + "…"
}
