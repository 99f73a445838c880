package main

import (
	"fmt"
	"strings"

	"github.com/da99/topogo"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	flagTable   string
	flagVars    []string
	flagLists   []string
	flagAliases []string
)

var expandCmd = &cobra.Command{
	Use:   "expand <template>",
	Short: "Expand an SQL template without running it",
	Long: `Expand rewrites a template the way Table.Run does and prints the
resulting statement and its arguments.

Examples:
  topogo expand 'SELECT * FROM @table WHERE id = @id' --table users --var id=1
  topogo expand 'SELECT * FROM @t WHERE name IN @names' --alias t=Foo --list names=a,b
  topogo expand 'CREATE TABLE @table ( id $id_type, $created_at )' --table posts`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vars, err := parseVars()
		if err != nil {
			return err
		}

		out, err := topogo.Expand(args[0], flagTable, vars)
		if err != nil {
			return err
		}

		printTitle("SQL")
		sqlColor.Println(out.Text)

		if len(out.Args) == 0 {
			return nil
		}
		fmt.Println()
		printTitle("Arguments")
		for i, arg := range out.Args {
			argColor.Printf("$%d", i+1)
			fmt.Printf(" = %#v\n", arg)
		}
		return nil
	},
}

func init() {
	expandCmd.Flags().StringVar(&flagTable, "table", "", "table substituted for @table")
	expandCmd.Flags().StringArrayVar(&flagVars, "var", nil, "named variable, as name=value")
	expandCmd.Flags().StringArrayVar(&flagLists, "list", nil, "named list variable, as name=a,b,c")
	expandCmd.Flags().StringArrayVar(&flagAliases, "alias", nil, "table alias, as alias=table")
}

func parseVars() (map[string]interface{}, error) {
	vars := map[string]interface{}{}

	for _, pair := range flagVars {
		key, val, err := splitPair(pair)
		if err != nil {
			return nil, err
		}
		vars[key] = val
	}

	for _, pair := range flagLists {
		key, val, err := splitPair(pair)
		if err != nil {
			return nil, err
		}
		var list []interface{}
		for _, elem := range strings.Split(val, ",") {
			list = append(list, elem)
		}
		vars[key] = list
	}

	if len(flagAliases) > 0 {
		tables := topogo.Tables{}
		for _, pair := range flagAliases {
			key, val, err := splitPair(pair)
			if err != nil {
				return nil, err
			}
			tables[key] = val
		}
		vars[topogo.TablesKey] = tables
	}

	if len(vars) == 0 {
		return nil, nil
	}
	return vars, nil
}

func splitPair(pair string) (string, string, error) {
	key, val, ok := strings.Cut(pair, "=")
	if !ok || key == "" {
		return "", "", errors.Errorf("expected name=value, got %q", pair)
	}
	return key, val, nil
}
