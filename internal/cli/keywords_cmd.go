package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gadzhilaev/smile-ai-tg/internal/i18n"
)

func newKeywordsCmd(config func() (*Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Manage the escalation keyword file (support.keywords_file)",
	}
	path := func() (string, error) {
		cfg, err := config()
		if err != nil {
			return "", err
		}
		if cfg.Support.KeywordsFile == "" {
			return "", errors.New("support.keywords_file is not set")
		}
		return cfg.Support.KeywordsFile, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the active keywords",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config()
			if err != nil {
				return err
			}
			return listKeywords(cmd.OutOrStdout(), cfg.Support.KeywordsFile)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add KEYWORD",
		Short: "Add a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := path()
			if err != nil {
				return err
			}
			if err = addKeyword(p, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.TData("keywords_saved", map[string]any{"Path": p}))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove KEYWORD",
		Short: "Remove a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := path()
			if err != nil {
				return err
			}
			if err = removeKeyword(p, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.TData("keywords_saved", map[string]any{"Path": p}))
			return nil
		},
	})
	return cmd
}
