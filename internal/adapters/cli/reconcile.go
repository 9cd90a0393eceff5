package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

func newReconcileCommand(r *runner) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Fill empty filter buckets by relabelling, duplicating or creating guides",
		Long: `Audits coverage, plans the smallest set of changes that gives every
filter value an approved guide, applies it and audits again.
A second run without outside changes plans nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.svc.Reconciler == nil {
				return notConfigured("reconcile")
			}
			summary, err := r.svc.Reconciler.Run(cmd.Context(), domain.ReconcileOptions{DryRun: dryRun})
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}
			printRunSummary(cmd.OutOrStdout(), summary)
			r.finish(cmd)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan only, do not write to the store")
	return cmd
}
