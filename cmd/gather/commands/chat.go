package commands

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dyluth/gather/internal/filter"
	"github.com/dyluth/gather/internal/printer"
	"github.com/dyluth/gather/internal/render"
	"github.com/dyluth/gather/internal/timespec"
	"github.com/dyluth/gather/pkg/store"
	"github.com/spf13/cobra"
)

var (
	chatUser   string
	chatName   string
	chatSince  string
	chatUntil  string
	chatOutput string
	chatRead   bool
	chatFrom   string
	chatQuiet  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Read and write event chats",
}

var chatSendCmd = &cobra.Command{
	Use:   "send EVENT_ID MESSAGE...",
	Short: "Post a message as a subscribed user",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runChatSend,
}

var chatLogCmd = &cobra.Command{
	Use:   "log EVENT_ID",
	Short: "Print the ordered message history of an event",
	Long: `Print an event chat ordered by timestamp, ties in arrival order.

Filters:
  --since     - Only messages sent after this time (duration or RFC3339)
  --until     - Only messages sent before this time
  --from      - Only messages whose sender name matches a glob (e.g. "ali*")
  --no-system - Hide the "Chat created" placeholder

With --user and --mark-read, the user's read cursor moves to the last message
of the chat, whatever filters are applied to the output.

Examples:
  gather chat log 3f2a... --since 2h
  gather chat log 3f2a... --output jsonl | jq .body`,
	Args: cobra.ExactArgs(1),
	RunE: runChatLog,
}

var chatTailCmd = &cobra.Command{
	Use:   "tail EVENT_ID",
	Short: "Follow an event chat live",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatTail,
}

func init() {
	chatCmd.PersistentFlags().StringVarP(&chatUser, "user", "u", "", "Acting user id")

	chatSendCmd.Flags().StringVar(&chatName, "name", "", "Sender display name (default: profile name)")

	chatLogCmd.Flags().StringVar(&chatSince, "since", "", "Show messages after time (duration or RFC3339)")
	chatLogCmd.Flags().StringVar(&chatUntil, "until", "", "Show messages before time (duration or RFC3339)")
	chatLogCmd.Flags().StringVarP(&chatOutput, "output", "o", "default", "Output format: default or jsonl")
	chatLogCmd.Flags().BoolVar(&chatRead, "mark-read", false, "Move the user's read cursor to the chat's last message")

	for _, c := range []*cobra.Command{chatLogCmd, chatTailCmd} {
		c.Flags().StringVar(&chatFrom, "from", "", "Only messages from senders matching this glob")
		c.Flags().BoolVar(&chatQuiet, "no-system", false, "Hide the chat placeholder message")
	}

	chatCmd.AddCommand(chatSendCmd, chatLogCmd, chatTailCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatSend(cmd *cobra.Command, args []string) error {
	if err := requireUser(chatUser); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	eventID, err := a.resolveEvent(ctx, args[0])
	if err != nil {
		return err
	}
	ok, err := a.ledger.IsSubscribed(ctx, chatUser, eventID)
	if err != nil {
		return storeError("check subscription", err)
	}
	if !ok {
		return printer.Error(
			"not subscribed",
			chatUser+" must join the event before writing in its chat.",
			[]string{"gather join " + eventID + " --user " + chatUser},
		)
	}

	name := chatName
	if name == "" {
		if p, err := a.profiles.Get(ctx, chatUser); err == nil {
			name = p.Username
		}
	}

	id, err := a.chat.Append(ctx, eventID, chatUser, name, strings.Join(args[1:], " "))
	if err != nil {
		return storeError("send message", err)
	}
	printer.Success("sent %s\n", id)
	return nil
}

func runChatLog(cmd *cobra.Command, args []string) error {
	format, err := render.ParseOutputFormat(chatOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), nil)
	}
	if chatRead {
		if err := requireUser(chatUser); err != nil {
			return err
		}
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	sinceMs, untilMs, err := timespec.ParseRange(chatSince, chatUntil, a.clock.Now())
	if err != nil {
		return printer.Error("invalid time filter", err.Error(), nil)
	}

	eventID, err := a.resolveEvent(ctx, args[0])
	if err != nil {
		return err
	}
	history, err := a.chat.History(ctx, eventID)
	if err != nil {
		return storeError("read chat", err)
	}
	criteria := &filter.Criteria{SinceMs: sinceMs, UntilMs: untilMs, SenderGlob: chatFrom, SkipSystem: chatQuiet}
	messages := criteria.Apply(history)

	if format == render.OutputFormatJSONL {
		if err := render.JSONL(printer.Out(), messages); err != nil {
			return err
		}
	} else {
		render.ChatLog(printer.Out(), messages)
	}

	// Filters only narrow the output; the cursor covers the whole chat.
	if chatRead && len(history) > 0 {
		last := history[len(history)-1]
		if err := a.chat.MarkRead(ctx, chatUser, eventID, last.ID); err != nil {
			return storeError("mark read", err)
		}
	}
	return nil
}

// runChatTail prints the current history, then every new message until interrupted.
func runChatTail(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	eventID, err := a.resolveEvent(ctx, args[0])
	if err != nil {
		return err
	}
	feed, err := a.chat.Subscribe(ctx, eventID)
	if err != nil {
		return storeError("follow chat", err)
	}
	defer feed.Close()

	criteria := &filter.Criteria{SenderGlob: chatFrom, SkipSystem: chatQuiet}
	seen := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return nil
		case messages, ok := <-feed.Updates():
			if !ok {
				return nil
			}
			// Snapshots are full lists; late messages can land before seen ones.
			for _, m := range criteria.Apply(messages) {
				if seen[m.ID] {
					continue
				}
				seen[m.ID] = true
				printer.Info("%s\n", render.ChatLine(m))
			}
		case err, ok := <-feed.Errors():
			if !ok {
				return nil
			}
			if store.IsNotFound(err) {
				printer.Warning("event %s was deleted\n", eventID)
				return nil
			}
			return storeError("follow chat", err)
		}
	}
}
