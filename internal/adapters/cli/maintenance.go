package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

func newAssignImagesCommand(r *runner) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "assign-images",
		Short: "Give approved guides a valid, distinct hero image",
		Long: `Replaces hero images that are missing, invalid or shared with another
guide of the same category. With --force every approved guide is
reassigned; the choice is deterministic, so repeated runs agree.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.svc.Images == nil {
				return notConfigured("assign-images")
			}
			results, err := r.svc.Images.AssignAll(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("assign images failed: %w", err)
			}
			printResults(cmd.OutOrStdout(), results)
			r.finish(cmd)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reassign every guide, not only broken ones")
	return cmd
}

func newSyncUnitsCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-units",
		Short: "Make unit and function_area agree on every guide",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.svc.UnitMirror == nil {
				return notConfigured("sync-units")
			}
			results, err := r.svc.UnitMirror.Sync(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync units failed: %w", err)
			}
			printResults(cmd.OutOrStdout(), results)
			r.finish(cmd)
			return nil
		},
	}
}

func newConvertCommand(r *runner) *cobra.Command {
	var (
		to     string
		asCopy bool
	)
	cmd := &cobra.Command{
		Use:   "convert <id-or-slug>",
		Short: "Move a guide to another category",
		Long: `Relabels a guide so it is classified under the target category.
With --copy the original is kept and a duplicate is created in the
target category instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if r.svc.Conversion == nil {
				return notConfigured("convert")
			}
			target, err := domain.ParseCategory(to)
			if err != nil {
				return err
			}
			result, err := r.svc.Conversion.Convert(cmd.Context(), args[0], target, asCopy)
			if err != nil {
				return fmt.Errorf("convert failed: %w", err)
			}
			printResults(cmd.OutOrStdout(), []domain.ActionResult{result})
			r.finish(cmd)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "target category (Guidelines, Strategy, Blueprint, Testimonial)")
	cmd.Flags().BoolVar(&asCopy, "copy", false, "duplicate instead of converting in place")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newDuplicateCommand(r *runner) *cobra.Command {
	var (
		category  string
		dimension string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "duplicate",
		Short: "Copy every guide of a category across the options of a dimension",
		Long: `Creates, for each approved guide of the category, one copy per option
of the dimension the guide lacks. Copies are named <slug>-<option>.
With --force earlier copies are deleted and regenerated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.svc.Duplication == nil {
				return notConfigured("duplicate")
			}
			c, err := domain.ParseCategory(category)
			if err != nil {
				return err
			}
			results, err := r.svc.Duplication.Duplicate(cmd.Context(), c, dimension, force)
			if err != nil {
				return fmt.Errorf("duplicate failed: %w", err)
			}
			printResults(cmd.OutOrStdout(), results)
			r.finish(cmd)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category whose guides are copied")
	cmd.Flags().StringVar(&dimension, "dimension", "", "filter dimension to spread the copies over")
	cmd.Flags().BoolVar(&force, "force", false, "delete earlier copies before regenerating them")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("dimension")
	return cmd
}

func newDiagnoseCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Check store permissions and data problems that break filters",
		Long: `Runs select, insert, update and delete against the guides table with a
throwaway draft and reports which are allowed. Also lists invalid or
shared hero images and unit/function_area mismatches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.svc.Diagnoser == nil {
				return notConfigured("diagnose")
			}
			diagnosis, err := r.svc.Diagnoser.Diagnose(cmd.Context())
			if err != nil {
				return fmt.Errorf("diagnose failed: %w", err)
			}
			printDiagnosis(cmd.OutOrStdout(), diagnosis)
			r.finish(cmd)
			return nil
		},
	}
}
