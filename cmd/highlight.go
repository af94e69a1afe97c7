package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/engine"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/resolve"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/pkg/chat"
)

var highlightNames []string

type highlightOutput struct {
	Question  string          `json:"question,omitempty"`
	Synthesis string          `json:"synthesis,omitempty"`
	IDs       []string        `json:"ids"`
	Matches   []resolve.Match `json:"matches"`
}

var highlightCmd = &cobra.Command{
	Use:   "highlight [question]",
	Short: "Resolve a chat answer or explicit names to facility ids",
	Long:  "Sends the question to the chat backend and resolves the facility names it returns. With --names the names are resolved locally and no backend is needed.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("highlight"); err != nil {
			return err
		}

		question := ""
		if len(args) == 1 {
			question = strings.TrimSpace(args[0])
		}
		if question == "" && len(highlightNames) == 0 {
			return eris.New("a question or --names is required")
		}

		var (
			names     = append([]string{}, highlightNames...)
			synthesis string
		)
		if question != "" {
			client := newChatClient(cfg.Chat)
			if client == nil {
				return eris.New("chat.base_url is not configured")
			}
			resp, err := askChat(cmd, client, question)
			if err != nil {
				return err
			}
			synthesis = resp.Synthesis
			names = append(names, resp.FacilityNames...)
		}

		snap, err := loadSnapshot(cmd.Context(), cfg.Data)
		if err != nil {
			return err
		}

		set, matches := engine.New(engineConfig(cfg)).Highlight(snap, names)
		zap.L().Info("highlight resolved",
			zap.Int("names", len(names)),
			zap.Int("matched", set.Len()),
		)

		return writeJSONTo(cmd.OutOrStdout(), highlightOutput{
			Question:  question,
			Synthesis: synthesis,
			IDs:       set.IDs(),
			Matches:   matches,
		})
	},
}

func askChat(cmd *cobra.Command, client chat.Client, question string) (*chat.Response, error) {
	resp, err := client.Ask(cmd.Context(), question)
	if err != nil {
		return nil, eris.Wrap(err, "ask chat backend")
	}
	return resp, nil
}

func init() {
	highlightCmd.Flags().StringSliceVar(&highlightNames, "names", nil, "facility names to resolve locally")
	rootCmd.AddCommand(highlightCmd)
}
