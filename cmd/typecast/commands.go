package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xonecas/typecast/internal/api"
	"github.com/xonecas/typecast/internal/sse"
)

// errIncomplete reports a stream that closed without a done or error frame.
var errIncomplete = errors.New("stream ended before the reply completed")

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send one message and print the streamed reply",
		Long: `Sends a single message to the chat server and writes the reply to
stdout as it arrives. The exchange joins the server's shared history.

Example:
  typecast ask "explain server-sent events"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := opts.client()

			selector, s, err := opts.openSelector(ctx, client)
			if err != nil {
				return err
			}
			defer s.Close()

			req := api.SendRequest{
				Message: strings.Join(args, " "),
				Model:   selector.CurrentID(),
			}
			return ask(ctx, client, req, cmd.OutOrStdout())
		},
	}
}

// ask streams the reply for req into out.
func ask(ctx context.Context, client *api.Client, req api.SendRequest, out io.Writer) error {
	body, err := client.Send(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()

	reader := sse.NewReader(body)
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return errIncomplete
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}

		switch ev.Kind {
		case sse.KindStart:
			log.Debug().Str("model", ev.Model).Msg("Reply started")
		case sse.KindChunk:
			if _, err := io.WriteString(out, ev.Content); err != nil {
				return err
			}
		case sse.KindDone:
			_, err := io.WriteString(out, "\n")
			return err
		case sse.KindError:
			return ev.Err()
		}
	}
}

func newModelsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the server's models and mark the selected one",
		Long: `Lists the models offered by the chat server. The selected model is
marked with an asterisk. Pass --model to change the selection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()

			selector, s, err := opts.openSelector(cmd.Context(), client)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := selector.Err(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range selector.Models() {
				mark := " "
				if m.ID == selector.CurrentID() {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %-24s %-12s %s\n", mark, m.ID, m.Category, m.Name)
			}
			return nil
		},
	}
}

func newClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the server's conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}
}
