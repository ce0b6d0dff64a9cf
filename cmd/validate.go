package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/coc-switcher/internal/extract"
	"github.com/sells-group/coc-switcher/internal/merge"
	"github.com/sells-group/coc-switcher/internal/model"
	"github.com/sells-group/coc-switcher/internal/pdftext"
	"github.com/sells-group/coc-switcher/internal/validate"
)

var (
	validateCertificate string
	validatePackingSlip string
	validatePDN         string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check paperwork for completeness without rendering",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, err := pdftext.New(cfg.Extract)
		if err != nil {
			return err
		}
		svc := extract.New(text)

		packingSlip, err := os.ReadFile(validatePackingSlip)
		if err != nil {
			return eris.Wrap(err, "read packing slip")
		}
		var certificate []byte
		if validateCertificate != "" {
			certificate, err = os.ReadFile(validateCertificate)
			if err != nil {
				return eris.Wrap(err, "read certificate")
			}
		}

		rec, err := svc.Extract(ctx, certificate, packingSlip)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		vars := merge.Merge(rec, &model.ManualData{PartialDeliveryNumber: validatePDN})
		result := validate.Validate(vars, rec)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}

		if result.Blocked() {
			return eris.Errorf("%d validation errors", len(result.Errors))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateCertificate, "certificate", "", "supplier conformity certificate PDF")
	validateCmd.Flags().StringVar(&validatePackingSlip, "packing-slip", "", "packing slip PDF (required)")
	validateCmd.Flags().StringVar(&validatePDN, "partial-delivery", "", "partial delivery number")
	_ = validateCmd.MarkFlagRequired("packing-slip")
	rootCmd.AddCommand(validateCmd)
}
