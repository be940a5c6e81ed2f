package main

import (
	"fmt"

	"github.com/ashureev/teamconsole/internal/appstate"
	"github.com/ashureev/teamconsole/internal/store"
	"github.com/spf13/cobra"
)

var supportedLanguages = []string{"en", "fr", "es"}

func newLanguageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "language [code]",
		Short:     "Show or set the interface language",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: supportedLanguages,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				writeln(out, a.state.State().Language)
				return nil
			}
			if err := cobra.OnlyValidArgs(cmd, args); err != nil {
				return fmt.Errorf("unsupported language %q (supported: %v)", args[0], supportedLanguages)
			}
			a.state.Dispatch(appstate.SetLanguage{Language: args[0]})
			// Record the choice even when it matches the current language.
			if err := a.storage.Set(cmd.Context(), store.KeyLanguage, args[0]); err != nil {
				return fmt.Errorf("save language: %w", err)
			}
			writeln(out, "Language set to "+titleStyle.Render(args[0]))
			return nil
		},
	}
}
