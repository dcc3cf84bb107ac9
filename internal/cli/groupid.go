package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gadzhilaev/smile-ai-tg/internal/i18n"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/transport/telegram"
)

// newGroupIDCmd prints the groups the bot has seen recently, which is how
// GROUP_CHAT_ID is found during setup.
func newGroupIDCmd(config func() (*Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "group-id",
		Short: "List Telegram groups seen in recent bot updates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config()
			if err != nil {
				return err
			}
			if cfg.Telegram.Token == "" {
				return fmt.Errorf("%s", i18n.T("bot_token_missing"))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, i18n.T("group_id_fetching"))
			fmt.Fprintln(out, i18n.T("group_id_hint"))

			chats, err := telegram.NewClient(cfg.Telegram).RecentGroups(cmd.Context())
			if err != nil {
				return err
			}
			if len(chats) == 0 {
				fmt.Fprintln(out, i18n.T("group_id_none"))
				return nil
			}
			fmt.Fprintln(out, i18n.T("group_id_found"))
			for i, chat := range chats {
				fmt.Fprintf(out, "%d. %s\n", i+1, i18n.TData("group_id_entry", map[string]any{
					"Title": chat.Title,
					"ID":    chat.ID,
					"Type":  chat.Type,
				}))
			}
			fmt.Fprintln(out, i18n.T("group_id_copy"))
			return nil
		},
	}
}
