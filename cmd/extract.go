package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/coc-switcher/internal/extract"
	"github.com/sells-group/coc-switcher/internal/pdftext"
)

var (
	extractCertificate string
	extractPackingSlip string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the structured record from paperwork without converting",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, err := pdftext.New(cfg.Extract)
		if err != nil {
			return err
		}
		svc := extract.New(text)

		packingSlip, err := os.ReadFile(extractPackingSlip)
		if err != nil {
			return eris.Wrap(err, "read packing slip")
		}
		var certificate []byte
		if extractCertificate != "" {
			certificate, err = os.ReadFile(extractCertificate)
			if err != nil {
				return eris.Wrap(err, "read certificate")
			}
		}

		rec, err := svc.Extract(ctx, certificate, packingSlip)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractCertificate, "certificate", "", "supplier conformity certificate PDF")
	extractCmd.Flags().StringVar(&extractPackingSlip, "packing-slip", "", "packing slip PDF (required)")
	_ = extractCmd.MarkFlagRequired("packing-slip")
	rootCmd.AddCommand(extractCmd)
}
