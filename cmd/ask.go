package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/partsdesk/internal/router"
	"github.com/ziadkadry99/partsdesk/internal/stream"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question through the tiered resolver",
	Long: `Runs a question through the same router the server uses and prints the
fragments as they stream. Without an argument, questions are read line by
line from stdin and share one conversation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("conversation", "", "conversation id (default: a new one)")
	askCmd.Flags().Bool("json", false, "print fragments as JSON lines")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	conversationID, _ := cmd.Flags().GetString("conversation")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	ask := func(query string) error {
		sink := fragmentPrinter(out, jsonOutput)
		class, err := s.router.Handle(ctx, router.Request{ConversationID: conversationID, Query: query}, sink)
		if !jsonOutput {
			fmt.Fprintf(out, "[tier=%s confidence=%.2f intent=%s]\n", class.Tier, class.Confidence, class.Intent)
		}
		return err
	}

	if len(args) == 1 {
		return ask(args[0])
	}

	if !jsonOutput {
		fmt.Fprintf(out, "conversation %s (Ctrl-D to end)\n", conversationID)
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		// A failed turn was already reported by its failed fragment.
		_ = ask(query)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// fragmentPrinter renders fragments for a terminal, or as JSON lines.
func fragmentPrinter(w io.Writer, asJSON bool) stream.Sink {
	if asJSON {
		enc := json.NewEncoder(w)
		return stream.SinkFunc(func(_ context.Context, f stream.Fragment) error {
			return enc.Encode(f)
		})
	}
	return stream.SinkFunc(func(_ context.Context, f stream.Fragment) error {
		switch p := f.Payload.(type) {
		case stream.ThinkingPayload:
			fmt.Fprintf(w, "... %s\n", p.Message)
		case stream.AnswerTextPayload:
			fmt.Fprint(w, p.Text)
		case stream.PartsPayload:
			fmt.Fprintln(w, "\nParts:")
			for _, part := range p.Parts {
				stock := "in stock"
				if !part.InStock {
					stock = "out of stock"
				}
				fmt.Fprintf(w, "  %s  %s  $%.2f  %s\n", part.PartNumber, part.Name, part.Price, stock)
			}
		case stream.RepairsPayload:
			fmt.Fprintln(w, "\nRepair guides:")
			for _, r := range p.Repairs {
				fmt.Fprintf(w, "  %s (%s)\n", r.Title, r.Difficulty)
			}
		case stream.ArticlesPayload:
			fmt.Fprintln(w, "\nArticles:")
			for _, a := range p.Articles {
				fmt.Fprintf(w, "  %s  %s\n", a.Title, a.URL)
			}
		case stream.DonePayload:
			fmt.Fprintf(w, "\n(done in %dms)\n", p.ElapsedMS)
		case stream.FailedPayload:
			fmt.Fprintf(w, "\nfailed: %s\n", p.Reason)
		}
		return nil
	})
}
