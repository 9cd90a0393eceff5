package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

func newSeedCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <manifest.yaml>",
		Short: "Insert guides listed in a YAML manifest",
		Long: `Reads a manifest with a table and a list of guides. A guide may point
at a body_file inside the report directory; a missing summary is cut
from the body. Guides whose slug already exists are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if r.svc.Seeder == nil {
				return notConfigured("seed")
			}
			manifest, err := readManifest(args[0])
			if err != nil {
				return err
			}
			results, err := r.svc.Seeder.Seed(cmd.Context(), manifest)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			printResults(cmd.OutOrStdout(), results)
			r.finish(cmd)
			return nil
		},
	}
}

func readManifest(path string) (domain.SeedManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.SeedManifest{}, domain.WrapError(domain.ErrInvalidInput, "read manifest", err)
	}
	var manifest domain.SeedManifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return domain.SeedManifest{}, domain.WrapError(domain.ErrInvalidInput, "parse manifest", err)
	}
	return manifest, nil
}
