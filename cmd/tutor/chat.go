package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/router"
)

type chatOptions struct {
	user        string
	metricsAddr string
	jsonOutput  bool
}

func newChatCmd(g *globals) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the tutor, one turn per line of input",
		Long: "chat reads messages from stdin and routes each as one turn. On a terminal it prompts and renders " +
			"replies; otherwise it writes one JSON result per line.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := parseUserID(opts.user)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := newApplication(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			app.startGraphWatcher(ctx)

			addr := opts.metricsAddr
			if addr == "" {
				addr = g.cfg.Metrics.Addr
			}
			if addr != "" {
				go func() {
					if err := app.startOpsServer(ctx, addr, app.setupOpsRouter()); err != nil {
						app.logger.Error("ops server failed", slog.String("error", err.Error()))
					}
				}()
			}

			interactive := !opts.jsonOutput &&
				(isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()))
			return runChat(ctx, app.engine, userID, cmd.InOrStdin(), cmd.OutOrStdout(), interactive)
		},
	}
	cmd.Flags().StringVarP(&opts.user, "user", "u", os.Getenv("USER"), "Learner name or UUID")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address while chatting")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Write JSON results even on a terminal")
	return cmd
}

// turnHandler is the slice of the engine chat needs.
type turnHandler interface {
	HandleTurn(ctx context.Context, userID uuid.UUID, message string, now time.Time) (*router.TurnResult, error)
}

// runChat loops until input is exhausted or ctx is cancelled. Failed turns are
// reported and the loop continues.
func runChat(
	ctx context.Context,
	engine turnHandler,
	userID uuid.UUID,
	in io.Reader,
	out io.Writer,
	interactive bool,
) error {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(out)

	if interactive {
		fmt.Fprintln(out, mutedStyle.Render("Ask about any concept. Say \"got it\" when you are done with one. Ctrl-D quits."))
	}

	for {
		if interactive {
			fmt.Fprint(out, promptStyle.Render("> "))
		}
		if !scanner.Scan() {
			break
		}
		msg := strings.TrimSpace(scanner.Text())
		if msg == "" {
			continue
		}

		res, err := engine.HandleTurn(ctx, userID, msg, time.Now().UTC())
		if ctx.Err() != nil {
			return nil
		}

		switch {
		case err != nil && interactive:
			fmt.Fprintln(out, warnStyle.Render(describeTurnError(err)))
		case err != nil:
			if encErr := enc.Encode(map[string]string{"error": err.Error()}); encErr != nil {
				return encErr
			}
		case interactive:
			renderTurn(out, res)
		default:
			if encErr := enc.Encode(res); encErr != nil {
				return encErr
			}
		}
	}
	return scanner.Err()
}

func describeTurnError(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnresolvedConcept):
		return "I couldn't tell which concept you mean. Try naming it."
	case errors.Is(err, domain.ErrCollaboratorTimeout):
		return "The tutor took too long to answer. Please try again."
	default:
		return "Something went wrong: " + err.Error()
	}
}
