package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"gbv_reporter/config"
	"gbv_reporter/dialog"
	"gbv_reporter/escalation"
	"gbv_reporter/i18n"
	"gbv_reporter/logging"
	"gbv_reporter/security"
	"gbv_reporter/session"
	"gbv_reporter/storage"
)

var (
	chatStore      string
	chatSQLitePath string
	chatUser       string
)

var (
	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the reporting dialogue from the terminal",
	Long: `Run the reporting dialogue locally without WhatsApp.

Pick an option by typing its number, or type free text.
  /media <id>   send an attachment with the given media id
  /quit         leave the chat

Reports are kept in memory and escalated inline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logging.Setup(level, "text")

		store, closeStore, err := openSessionStore(chatStore, chatSQLitePath, 0, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		return runChat(cmd.Context(), os.Stdin, cmd.OutOrStdout(), store, chatUser)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatStore, "store", config.BackendMemory, "Session store: memory or sqlite")
	chatCmd.Flags().StringVar(&chatSQLitePath, "sqlite-path", "chat-sessions.db", "SQLite file used with --store sqlite")
	chatCmd.Flags().StringVar(&chatUser, "user", "console-user", "Sender id of the console user")
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context, in io.Reader, out io.Writer, store session.Store, userID string) error {
	reports := storage.NewMemoryReports()
	console := &consoleSender{out: out}

	manager := dialog.NewManager(dialog.Deps{
		Engine:    dialog.NewEngine(i18n.DefaultTranslator()),
		Store:     store,
		Sender:    console,
		Sink:      reports,
		Status:    reports,
		FollowUps: reports,
		Notifier:  escalation.InlineNotifier{Service: escalation.NewService(reports)},
	})

	fmt.Fprintln(out, hintStyle.Render("Type anything to begin. /quit to leave."))
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "/quit" {
			return nil
		}

		ev := dialog.Event{SenderID: userID, Message: console.parse(line)}
		if err := manager.HandleMessage(ctx, ev); err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ "+err.Error()))
		}
	}
}

// consoleSender renders intents as terminal text and remembers the
// options last shown so they can be picked by number.
type consoleSender struct {
	out     io.Writer
	options []dialog.Option
}

func (c *consoleSender) parse(line string) dialog.Message {
	trimmed := strings.TrimSpace(line)
	if id, ok := strings.CutPrefix(trimmed, "/media "); ok {
		return dialog.Media(strings.TrimSpace(id), "image")
	}
	if n, err := strconv.Atoi(trimmed); err == nil && n >= 1 && n <= len(c.options) {
		return dialog.Choice(c.options[n-1].ID)
	}
	return dialog.Text(security.SanitizeText(line))
}

func (c *consoleSender) SendText(_ context.Context, _, body string) error {
	fmt.Fprintln(c.out, botStyle.Render(body))
	return nil
}

func (c *consoleSender) SendChoices(_ context.Context, _, body string, options []dialog.Option) error {
	fmt.Fprintln(c.out, botStyle.Render(body))
	c.options = append(c.options[:0], options...)
	c.list(options)
	return nil
}

func (c *consoleSender) SendMenu(_ context.Context, _, body, button string, sections []dialog.Section) error {
	fmt.Fprintln(c.out, botStyle.Render(body))
	fmt.Fprintln(c.out, buttonStyle.Render("["+button+"]"))
	c.options = c.options[:0]
	for _, s := range sections {
		fmt.Fprintln(c.out, hintStyle.Render(s.Title))
		c.options = append(c.options, s.Rows...)
	}
	c.list(c.options)
	return nil
}

func (c *consoleSender) list(options []dialog.Option) {
	for i, o := range options {
		fmt.Fprintf(c.out, "  %s %s\n", optionStyle.Render(strconv.Itoa(i+1)+"."), o.Title)
	}
}
