package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gocoherence/adapters/excel"
	"gocoherence/app"
	"gocoherence/internal/errors"
	"gocoherence/internal/report"
)

func newAnalyzeCmd() *cobra.Command {
	flags := &analysisFlags{}
	var htmlOut string

	cmd := &cobra.Command{
		Use:   "analyze [data-dir]",
		Short: "Analyze one recorded session",
		Long: `Load every <serial>.hex (or .jsonl) log in a directory, align the devices on a
one-second grid and print network variance, cross-correlation and coherence.

Example: coherence analyze ./entropy_data --window 120`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(flags)
			if err != nil {
				return err
			}
			req, err := env.request(args[0], "")
			if err != nil {
				return err
			}
			r, err := env.service.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}

			md := report.ReportMarkdown(r)
			fmt.Fprint(cmd.OutOrStdout(), md)
			for _, s := range r.Stages {
				for reason, n := range s.Skips {
					env.logger.Debug("%s: %d x %s", s.StageName, n, reason)
				}
			}
			return writeHTML(htmlOut, md)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&htmlOut, "html", "", "Also write the report as HTML to this file")
	return cmd
}

func newCompareCmd() *cobra.Command {
	flags := &analysisFlags{}
	var htmlOut string

	cmd := &cobra.Command{
		Use:   "compare [dir-a] [dir-b] [label-a] [label-b]",
		Short: "Compare two recorded sessions side by side",
		Long: `Analyze two sessions concurrently and print a comparison table of their headline
numbers. Labels default to the directory names.

Example: coherence compare ./baseline ./intention Baseline Intention`,
		Args: cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(flags)
			if err != nil {
				return err
			}
			labels := [2]string{filepath.Base(args[0]), filepath.Base(args[1])}
			if len(args) > 2 {
				labels[0] = args[2]
			}
			if len(args) > 3 {
				labels[1] = args[3]
			}

			a, err := env.request(args[0], labels[0])
			if err != nil {
				return err
			}
			b, err := env.request(args[1], labels[1])
			if err != nil {
				return err
			}
			comparison, err := app.NewCompareService(env.service).Compare(cmd.Context(), a, b)
			if err != nil {
				return err
			}

			md := report.ComparisonMarkdown(comparison)
			fmt.Fprint(cmd.OutOrStdout(), md)
			return writeHTML(htmlOut, md)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&htmlOut, "html", "", "Also write the comparison as HTML to this file")
	return cmd
}

func newExportCmd() *cobra.Command {
	flags := &analysisFlags{}
	var noScores, noWalks bool

	cmd := &cobra.Command{
		Use:   "export [data-dir] [out.xlsx]",
		Short: "Analyze a session and write the results as an Excel workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(flags)
			if err != nil {
				return err
			}
			req, err := env.request(args[0], "")
			if err != nil {
				return err
			}
			r, err := env.service.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}

			excelConfig := excel.DefaultExcelConfig()
			excelConfig.IncludeScores = !noScores
			excelConfig.IncludeWalks = !noWalks

			f, err := os.Create(args[1])
			if err != nil {
				return errors.Wrapf(err, "failed to create %s", args[1])
			}
			if err := excel.NewReportWriter(excelConfig, env.logger).Export(cmd.Context(), r, f); err != nil {
				f.Close()
				return errors.Wrap(err, "export failed")
			}
			if err := f.Close(); err != nil {
				return errors.Wrapf(err, "failed to close %s", args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (run %s)\n", args[1], r.RunID)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noScores, "no-scores", false, "Omit the per-second score sheet")
	cmd.Flags().BoolVar(&noWalks, "no-walks", false, "Omit the random walk sheet")
	return cmd
}

func writeHTML(path, md string) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, report.ToHTML(md), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
