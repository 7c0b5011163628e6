package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Records command flags
var (
	recordsCaller string
	recordsKey    string
	recordsFile   string
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Read and write caller records",
	Long: `Read and write the JSON arrays the progress tool reads:
calendarEvents, decisionHistory and priorities.`,
}

var recordsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print a caller record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		record, err := a.svc.GetRecord(cmd.Context(), recordsCaller, recordsKey)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), record.Value)
	},
}

var recordsPutCmd = &cobra.Command{
	Use:   "put",
	Short: "Replace a caller record with a JSON array",
	Long: `Replace a caller record with the JSON array read from --file or stdin.

Examples:
  unfiltered records put --caller user_1 --key priorities --file priorities.json
  echo '[{"title":"Ship","date":"2024-02-01"}]' | unfiltered records put --caller user_1 --key calendarEvents`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if recordsFile != "" {
			data, err = os.ReadFile(recordsFile)
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("reading record: %w", err)
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.svc.PutRecord(cmd.Context(), recordsCaller, recordsKey, json.RawMessage(data)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s for %s\n", recordsKey, recordsCaller)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsGetCmd, recordsPutCmd)

	recordsCmd.PersistentFlags().StringVar(&recordsCaller, "caller", "", "caller id")
	recordsCmd.PersistentFlags().StringVar(&recordsKey, "key", "", "record key")
	recordsPutCmd.Flags().StringVarP(&recordsFile, "file", "f", "", "JSON file (default: stdin)")

	_ = recordsCmd.MarkPersistentFlagRequired("caller")
	_ = recordsCmd.MarkPersistentFlagRequired("key")
}
