package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/teamconsole/internal/chat"
	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const connectTimeout = 10 * time.Second

// syncWriter serializes output from the channel goroutines and the prompt.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func newChatCmd(a *app) *cobra.Command {
	var historyLimit int
	cmd := &cobra.Command{
		Use:   "chat <agent-id>",
		Short: "Chat with an agent",
		Long: `Open a live chat with an agent. Each input line is sent as a message;
type /quit or send EOF to leave.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			return a.runChat(cmd, args[0], historyLimit)
		},
	}
	cmd.Flags().IntVar(&historyLimit, "history", 10, "Number of past messages to show")
	return cmd
}

func (a *app) runChat(cmd *cobra.Command, agentID string, historyLimit int) error {
	ctx := cmd.Context()
	out := &syncWriter{w: cmd.OutOrStdout()}

	agent, err := a.client.GetAgent(ctx, agentID)
	if err != nil {
		return err
	}
	team, err := a.client.GetTeam(ctx, agent.TeamID)
	if err != nil {
		return err
	}
	a.nav.Replace([]domain.PathEntry{teamsCrumb, teamCrumb(team), agentsCrumb})
	a.nav.Append(domain.PathEntry{Label: agent.Name, CurrentPath: "/agents/" + agent.ID})
	a.printTrail(out)

	history, err := a.client.ChatHistory(ctx, agent.ID)
	if err != nil {
		return err
	}
	if historyLimit >= 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, m := range history {
		printMessage(out, m)
	}

	conv, err := a.client.CreateChatSession(ctx, agent.ID)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.client.CloseChatSession(closeCtx, conv.ID); err != nil {
			slog.Warn("Failed to close chat session", "error", err, "conversation_id", conv.ID)
		}
	}()

	connected := make(chan struct{}, 1)
	ch, err := chat.New(chat.Config{
		BaseURL:        a.cfg.WSURL,
		ReconnectDelay: a.cfg.ReconnectDelay,
		Token:          a.state.Token,
		OnMessage:      func(m domain.ChatMessage) { printMessage(out, m) },
		OnStateChange: func(s chat.State) {
			if s == chat.Connected {
				select {
				case connected <- struct{}{}:
				default:
				}
			}
		},
	})
	if err != nil {
		return err
	}
	ch.SetConversation(conv.ID)

	select {
	case <-connected:
		writeln(out, dimStyle.Render("Connected to "+agent.Name+". Type /quit to leave."))
	case <-time.After(connectTimeout):
		writeln(out, dimStyle.Render("Still connecting, messages are dropped until the socket is open."))
	case <-ctx.Done():
		_ = ch.Close()
		return ctx.Err()
	}

	lines := readLines(cmd.InOrStdin())

	loopCtx, stop := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error {
		defer stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				line = strings.TrimSpace(line)
				switch {
				case line == "":
				case line == "/quit":
					return nil
				case !ch.IsConnected():
					writeln(out, dimStyle.Render("Not connected, message dropped."))
				default:
					ch.SendMessage(gctx, line)
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		return ch.Close()
	})
	return g.Wait()
}

// readLines feeds input lines to the returned channel until EOF. The reader
// goroutine is not joined: a blocked terminal read cannot be interrupted.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			slog.Debug("Input closed", "error", err)
		}
	}()
	return lines
}
