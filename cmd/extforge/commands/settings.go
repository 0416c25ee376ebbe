package commands

import (
	"errors"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/credential"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the generation API key and show provider settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show provider settings and which API key is in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		key, source, err := a.Credentials.Resolve(cmd.Context(), scope())
		if err != nil && !errors.Is(err, credential.ErrCredentialMissing) {
			return err
		}

		rows := pterm.TableData{{"Property", "Value"}}
		rows = append(rows, []string{"Provider", a.Settings.Kind})
		rows = append(rows, []string{"Model", a.Settings.Model})
		if a.Settings.BaseURL != "" {
			rows = append(rows, []string{"Base URL", a.Settings.BaseURL})
		}
		rows = append(rows, []string{"Key source", string(source)})
		if key != "" {
			rows = append(rows, []string{"Key", credential.Mask(key)})
		}
		return printTable(rows)
	},
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key [key]",
	Short: "Store your own API key",
	Long: `Store an API key for the current identity. It takes precedence over
the key configured for the installation. Without an argument the key is
read from an interactive prompt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			var err error
			key, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("API key")
			if err != nil {
				return err
			}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("API key is empty")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Credentials.Store().Set(cmd.Context(), scope(), key); err != nil {
			return err
		}
		pterm.Success.Printfln("Stored key %s", credential.Mask(key))
		return nil
	},
}

var settingsClearKeyCmd = &cobra.Command{
	Use:   "clear-key",
	Short: "Remove your stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Credentials.Store().Delete(cmd.Context(), scope()); err != nil {
			return err
		}
		pterm.Success.Println("Stored key removed")
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsClearKeyCmd)
}
