package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tordrt/levelschema"
	"github.com/tordrt/levelschema/internal/formatter"
	"github.com/tordrt/levelschema/internal/schema"
)

func newDescribeCmd(a *app) *cobra.Command {
	var (
		outputFile string
		outputDir  string
		tables     string
		schemaName string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the schema of the connected database",
		Long:  `Extract tables, columns, indexes and foreign keys from the database and print them as compact text or markdown. Defaults to the levels and max_id tables; pass --tables '*' for every table.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir != "" && outputFile != "" {
				return errors.New("cannot use both --output-dir and --output flags")
			}
			if format != formatter.FormatText && format != formatter.FormatMarkdown {
				return fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", format)
			}

			tableList := []string{schema.LevelsTable, schema.MaxIDTable}
			if tables == "*" {
				tableList = nil
			} else if t := parseTableList(tables); t != nil {
				tableList = t
			}

			opts, err := a.options(schemaName)
			if err != nil {
				return err
			}
			opts.Tables = tableList

			var writer io.Writer = cmd.OutOrStdout()
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() {
					if err := f.Close(); err != nil {
						a.log.WithError(err).Warn("failed to close output file")
					}
				}()
				writer = f
			}

			return levelschema.ExtractAndFormat(cmd.Context(), a.cfg.Database.URL, opts, &levelschema.OutputOptions{
				Writer:    writer,
				OutputDir: outputDir,
				Format:    format,
			})
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	cmd.Flags().StringVarP(&tables, "tables", "t", "", "Tables to describe, comma-separated, or '*' for all (default: levels,max_id)")
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: current schema for PostgreSQL, the DSN database for MySQL)")
	cmd.Flags().StringVarP(&format, "format", "f", formatter.FormatText, "Output format: text or markdown")
	return cmd
}
