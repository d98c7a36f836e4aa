package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mergeq.dev/mergeq/internal/analysis"
	"mergeq.dev/mergeq/internal/orchestrator"
	"mergeq.dev/mergeq/internal/output"
	"mergeq.dev/mergeq/internal/validate"
)

func newAnalyzeCmd(verbose *bool) *cobra.Command {
	var (
		concurrency int
		level       string
		runChecks   bool
		remoteName  string
		all         bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [branches...]",
		Short: "Analyze candidate branches against the base branch",
		Long: `Analyzes each candidate branch with a bounded worker pool: diff statistics,
trial-merge conflict detection, critical-file impact, and (optionally) the
full validation pipeline. Results are persisted atomically and summarized
per merge strategy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := getContext(cmd, *verbose)
			if err != nil {
				return err
			}

			lvl, err := validate.ParseLevel(level)
			if err != nil {
				return err
			}

			branches := args
			if all {
				branches, err = ctx.Runner.ListBranches(cmd.Context())
				if err != nil {
					return err
				}
				branches = filterCandidates(branches, ctx.Config.BaseBranch)
			}
			if len(branches) == 0 {
				return fmt.Errorf("no branches to analyze (pass branch names or --all)")
			}

			doc, err := ctx.Orchestrator.Analyze(cmd.Context(), branches, orchestrator.Options{
				Remote: remoteName,
				Analysis: analysis.Options{
					Concurrency: concurrency,
					Level:       lvl,
					Validate:    runChecks,
				},
			})
			if err != nil {
				return err
			}

			printDocument(ctx.Splog, doc)
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "worker pool size (default from config)")
	cmd.Flags().StringVarP(&level, "level", "l", string(validate.LevelStandard), "validation level: minimal, standard, strict")
	cmd.Flags().BoolVar(&runChecks, "validate", false, "run the validation pipeline for each branch")
	cmd.Flags().StringVar(&remoteName, "remote", "", "fetch this remote before analyzing")
	cmd.Flags().BoolVar(&all, "all", false, "analyze every local branch except the base and backups")

	return cmd
}

// filterCandidates drops the base branch and mergeq's own backup branches
func filterCandidates(branches []string, base string) []string {
	var out []string
	for _, b := range branches {
		if b == base || strings.HasPrefix(b, "mergeq/") {
			continue
		}
		out = append(out, b)
	}
	return out
}

func printDocument(splog *output.Splog, doc *analysis.Document) {
	splog.Newline()
	for name, rec := range doc.Branches {
		switch {
		case rec.State == analysis.JobFailed:
			splog.Info("  %s  %s  %s", output.ColorFail("FAIL"), name, output.ColorDim(rec.Error))
		case !rec.Exists:
			splog.Info("  %s  %s  %s", output.ColorWarn("WARN"), name, output.ColorDim("not found"))
		case rec.Status == analysis.StatusMerged:
			splog.Info("  %s  %s  %s", output.ColorPass("PASS"), name, output.ColorDim("already merged, safe to delete"))
		default:
			a := rec.Analysis
			detail := fmt.Sprintf("%d files, %d conflicts, %d critical", a.ChangedFiles, a.ConflictCount, len(a.CriticalFiles))
			if rec.Validation != nil && rec.Validation.Verdict == validate.Fail {
				detail += ", validation " + string(rec.Validation.Verdict)
			}
			splog.Info("  %s  %s  %s  %s", verdictTag(rec), name, output.ColorStrategy(string(a.Strategy)), output.ColorDim(detail))
		}
	}
	splog.Newline()
	s := doc.Summary
	splog.Info("summary: auto %d, guided %d, manual %d, merged %d, missing %d, failed %d, total %d",
		s.Auto, s.Guided, s.Manual, s.Merged, s.Missing, s.Failed, s.Total)
}

func verdictTag(rec *analysis.BranchRecord) string {
	if rec.Validation != nil {
		switch rec.Validation.Verdict {
		case validate.Fail:
			return output.ColorFail("FAIL")
		case validate.Warn:
			return output.ColorWarn("WARN")
		}
	}
	return output.ColorPass("PASS")
}
