package main

import (
	"github.com/AlecAivazis/survey/v2"
	"github.com/da99/topogo/internal/config"
	"github.com/spf13/cobra"
)

var flagYes bool

var resetTestDbCmd = &cobra.Command{
	Use:   "reset-test-db",
	Short: "Drop the test table from the test database",
	Long: `Drops the table named by TOPOGO_TEST_TABLE (default "topogo_test")
from the database named by TOPOGO_TEST_URL, falling back to DATABASE_URL.
The integration tests recreate it on their next run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, cfg, err := openManager(testDatabaseURL)
		if err != nil {
			return err
		}
		defer mgr.Close()

		table := mgr.Table(cfg.TestTable)

		if !flagYes {
			confirmed := false
			prompt := &survey.Confirm{
				Message: "Drop table " + table.Quoted() + "?",
				Default: false,
			}
			if err := survey.AskOne(prompt, &confirmed); err != nil {
				return err
			}
			if !confirmed {
				printDim("Nothing dropped.")
				return nil
			}
		}

		if err := table.Drop(cmd.Context()); err != nil {
			return err
		}
		printSuccess("Dropped %s", table.Quoted())
		return nil
	},
}

func init() {
	resetTestDbCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation prompt")
}

func testDatabaseURL(cfg *config.Config) string { return cfg.TestDatabaseURL() }
