package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leofalp/sequencer/core/chat"
	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/providers/memory"
	"github.com/leofalp/sequencer/providers/memory/inmemory"
	"github.com/leofalp/sequencer/providers/memory/sqlitememory"
)

const chatHelp = `Commands:
  /model ID   switch model (%s)
  /history    print the conversation so far
  /reset      clear the conversation
  /quit       leave
`

func newChatCommand(app *app) *cobra.Command {
	var (
		transcript bool
		dbPath     string
		sessionID  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive streaming chat with the model",
		Long: `Start an interactive chat. Replies stream as they arrive; rate limits
fall back to a lighter model and are reported inline. With --transcript every
exchange is recorded in SQLite and --session resumes a recorded conversation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, closeStore, err := openTranscript(ctx, app, transcript, dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			serviceClient, err := app.newClient()
			if err != nil {
				return err
			}

			renderer := &turnRenderer{out: app.stdout}
			opts := []chat.SessionOption{
				chat.WithModel(app.modelOr(protocol.DefaultChatModel)),
				chat.WithRecorder(store),
				chat.WithOnUpdate(renderer.update),
			}
			if sessionID != "" {
				history, err := store.Turns(ctx, sessionID)
				if err != nil {
					return fmt.Errorf("load session %s: %w", sessionID, err)
				}
				opts = append(opts, chat.WithSessionID(sessionID), chat.WithHistory(history))
			}
			session := chat.NewSession(serviceClient, opts...)

			return chatLoop(ctx, app, session, renderer)
		},
	}

	cmd.Flags().BoolVar(&transcript, "transcript", false, "Record the conversation in SQLite")
	cmd.Flags().StringVar(&dbPath, "db", "", "Transcript database (default from config)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Resume a recorded session id")
	return cmd
}

// openTranscript returns the SQLite store when recording is requested and an
// in-memory store otherwise.
func openTranscript(ctx context.Context, app *app, enabled bool, dbPath string) (memory.Provider, func(), error) {
	if !enabled {
		return inmemory.New(), func() {}, nil
	}
	if dbPath == "" {
		dbPath = app.cfg.Transcript.Path
	}
	if dbPath == "" {
		return nil, nil, errors.New("--transcript needs --db or transcript.path in the config")
	}

	store, err := sqlitememory.Open(ctx, dbPath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			app.logger().Warn("failed to close transcript store", "error", err)
		}
	}, nil
}

func chatLoop(ctx context.Context, app *app, session *chat.Session, renderer *turnRenderer) error {
	fmt.Fprintf(app.stdout, "Chatting with %s (session %s). Type /help for commands.\n", session.Model(), session.ID())

	scanner := bufio.NewScanner(app.stdin)
	for {
		fmt.Fprint(app.stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(app.stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		if command, arg, isCommand := parseChatCommand(line); isCommand {
			quit, err := runChatCommand(app.stdout, session, command, arg)
			if err != nil {
				fmt.Fprintln(app.stdout, "Error:", err)
			}
			if quit {
				return nil
			}
			continue
		}

		renderer.begin(len(session.Turns()) + 1)
		err := session.Send(ctx, line)
		renderer.end()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			app.logger().Debug("chat send failed", "error", err)
		}
	}
}

func parseChatCommand(line string) (command, arg string, ok bool) {
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	command, arg, _ = strings.Cut(strings.TrimPrefix(line, "/"), " ")
	return command, strings.TrimSpace(arg), true
}

func runChatCommand(out io.Writer, session *chat.Session, command, arg string) (quit bool, err error) {
	switch command {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintf(out, chatHelp, strings.Join(protocol.Models(), ", "))
	case "model":
		model, err := protocol.ParseModel(arg)
		if err != nil {
			return false, err
		}
		session.SetModel(model)
		fmt.Fprintf(out, "Model set to %s\n", model)
	case "history":
		for _, turn := range session.Turns() {
			fmt.Fprintf(out, "%s: %s\n", turnLabel(turn), turn.Text)
		}
	case "reset":
		if err := session.Reset(); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Conversation cleared")
	default:
		return false, fmt.Errorf("unknown command /%s", command)
	}
	return false, nil
}

func turnLabel(turn chat.Turn) string {
	if turn.IsSystem {
		return "system"
	}
	return string(turn.Role)
}

// turnRenderer prints the turns of one exchange as they change: system
// notices on their own line and the live reply incrementally.
type turnRenderer struct {
	out io.Writer

	start       int
	systemShown int
	liveShown   int
	active      bool
}

// begin starts an exchange whose new turns follow index start.
func (t *turnRenderer) begin(start int) {
	t.start = start
	t.systemShown = 0
	t.liveShown = 0
	t.active = true
}

func (t *turnRenderer) end() {
	if t.active && t.liveShown > 0 {
		fmt.Fprintln(t.out)
	}
	t.active = false
}

func (t *turnRenderer) update(turns []chat.Turn) {
	if !t.active || t.start > len(turns) {
		return
	}

	systemSeen := 0
	for _, turn := range turns[t.start:] {
		switch {
		case turn.IsSystem:
			systemSeen++
			if systemSeen > t.systemShown {
				if t.liveShown > 0 {
					fmt.Fprintln(t.out)
				}
				fmt.Fprintln(t.out, turn.Text)
				t.systemShown = systemSeen
			}
		case turn.IsLiveCandidate():
			if len(turn.Text) > t.liveShown {
				fmt.Fprint(t.out, turn.Text[t.liveShown:])
				t.liveShown = len(turn.Text)
			}
		}
	}
}
