package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tordrt/levelschema"
)

func newGenerateSQLCmd() *cobra.Command {
	var dialect string

	cmd := &cobra.Command{
		Use:   "generate-sql",
		Short: "Print the DDL that creates levels and max_id",
		Long:  `Print the SQL that initializes the common tables for one dialect, without connecting to a database.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ddl, err := levelschema.GenerateSQL(dialect)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), ddl)
			return err
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", "postgres", "SQL dialect: postgres, mysql or sqlite")
	return cmd
}
