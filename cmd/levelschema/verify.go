package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/tordrt/levelschema"
	"github.com/tordrt/levelschema/internal/formatter"
)

var errVerifyFailed = errors.New("schema verification failed")

func newVerifyCmd(a *app) *cobra.Command {
	var schemaName string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check levels and max_id against the expected layout",
		Long: `Read levels and max_id back from the database and check columns, nullability,
primary key, unique indexes and the hash length. Exits non-zero when a problem
is found. Known gaps, such as max_id accepting more than one row, are printed
as warnings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options(schemaName)
			if err != nil {
				return err
			}

			res, err := levelschema.VerifySchema(cmd.Context(), a.cfg.Database.URL, opts)
			if err != nil {
				return err
			}

			if err := formatter.FormatReport(cmd.OutOrStdout(), *res); err != nil {
				return err
			}
			for _, w := range res.Report.Warnings {
				a.log.Warn(w)
			}
			if !res.Report.OK() {
				return errVerifyFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: current schema for PostgreSQL, the DSN database for MySQL)")
	return cmd
}
