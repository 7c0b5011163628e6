package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var assistantName string

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Manage the coaching assistant",
}

var assistantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the coaching assistant on the gateway",
	Long: `Create the coaching assistant with every registered tool and print its id.

Examples:
  unfiltered assistant create
  unfiltered assistant create --name Ada`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.svc.CreateAssistant(cmd.Context(), assistantName)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assistantCmd)
	assistantCmd.AddCommand(assistantCreateCmd)

	assistantCreateCmd.Flags().StringVar(&assistantName, "name", "", "profile name used to label the assistant")
}
