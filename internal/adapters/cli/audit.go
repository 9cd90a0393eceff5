package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuditCommand(r *runner) *cobra.Command {
	var (
		xlsxPath string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Report how approved guides cover every filter value",
		Long: `Classifies every approved guide and counts, for each filter value,
the guides a user would see when selecting it. Buckets are empty, single
or redundant. The JSON report is archived under audits/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := r.svc
			if svc.Coverage == nil {
				return notConfigured("audit")
			}
			report, err := svc.Coverage.Audit(cmd.Context())
			if err != nil {
				return fmt.Errorf("audit failed: %w", err)
			}

			raw, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			if svc.Archive != nil {
				key := "audits/" + report.GeneratedAt.UTC().Format(archiveStamp) + ".json"
				if err := svc.Archive.Save(cmd.Context(), key, bytes.NewReader(raw)); err != nil {
					svc.Logger.Warn("audit_archive_failed", "key", key, "error", err)
				}
			}

			if asJSON {
				cmd.Println(string(raw))
			} else {
				printCoverage(cmd.OutOrStdout(), report)
			}

			if xlsxPath != "" {
				if svc.Exporter == nil {
					return notConfigured("xlsx export")
				}
				if err := svc.Exporter.Export(report, xlsxPath); err != nil {
					return fmt.Errorf("export xlsx: %w", err)
				}
				cmd.Printf("Wrote %s\n", xlsxPath)
			}
			r.finish(cmd)
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the report as an Excel workbook")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

const archiveStamp = "20060102T150405Z"
