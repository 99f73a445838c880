package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var flagDb string

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the base tables of a database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := openManager(databaseURL)
		if err != nil {
			return err
		}
		defer mgr.Close()

		tables, err := mgr.ListTables(cmd.Context(), flagDb)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			printDim("No tables.")
			return nil
		}

		rows := make([][]string, len(tables))
		for i, name := range tables {
			rows[i] = []string{name}
		}
		return printTable([]string{"Table"}, rows)
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe [table...]",
	Short: "Show the columns of every table, or of the given tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := openManager(databaseURL)
		if err != nil {
			return err
		}
		defer mgr.Close()

		schema, err := mgr.DescribeTables(cmd.Context(), flagDb)
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			for name := range schema {
				names = append(names, name)
			}
			sort.Strings(names)
		}

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			cols, ok := schema[name]
			if !ok {
				printError("table %q not found", name)
				continue
			}
			rows = append(rows, []string{name, strings.Join(cols, ", ")})
		}
		if len(rows) == 0 {
			printDim("No tables.")
			return nil
		}
		return printTable([]string{"Table", "Columns"}, rows)
	},
}

func init() {
	tablesCmd.Flags().StringVar(&flagDb, "db", "", "database name, replacing the path of the URL")
	describeCmd.Flags().StringVar(&flagDb, "db", "", "database name, replacing the path of the URL")
}
