package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coc-switcher/internal/model"
	"github.com/sells-group/coc-switcher/internal/pipeline"
)

var (
	convertCertificate string
	convertPackingSlip string
	convertSerialsXLSX string
	convertPDN         string
	convertUndelivered string
	convertRemarks     string
	convertOverrides   []string
	convertTemplateID  string
	convertOutDir      string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert one shipment's paperwork into a COC document",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if convertOutDir != "" {
			cfg.Render.OutDir = convertOutDir
		}

		p, err := pipeline.New(cfg, st)
		if err != nil {
			return err
		}

		manual := &model.ManualData{
			PartialDeliveryNumber: convertPDN,
			UndeliveredQuantity:   convertUndelivered,
			Remarks:               convertRemarks,
		}
		for _, pair := range convertOverrides {
			field, value, ok := strings.Cut(pair, "=")
			if !ok {
				return eris.Errorf("invalid --set %q, expected field=value", pair)
			}
			if manual.Overrides == nil {
				manual.Overrides = map[string]string{}
			}
			manual.Overrides[field] = value
		}

		job, err := p.Run(ctx, pipeline.ConvertInput{
			Name:            jobName(convertPackingSlip),
			CertificatePath: convertCertificate,
			PackingSlipPath: convertPackingSlip,
			SerialSheetPath: convertSerialsXLSX,
			Manual:          manual,
			TemplateID:      convertTemplateID,
		})
		if err != nil {
			if eris.Is(err, pipeline.ErrBlocked) && job != nil && job.Validation != nil {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(job.Validation)
			}
			return eris.Wrap(err, "convert")
		}

		zap.L().Info("document written",
			zap.String("path", job.Rendered.Path),
			zap.String("job", job.ID))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job.Rendered)
	},
}

// jobName derives a human-readable job name from the packing slip filename.
func jobName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func init() {
	convertCmd.Flags().StringVar(&convertCertificate, "certificate", "", "supplier conformity certificate PDF")
	convertCmd.Flags().StringVar(&convertPackingSlip, "packing-slip", "", "packing slip PDF (required)")
	convertCmd.Flags().StringVar(&convertSerialsXLSX, "serials-xlsx", "", "XLSX serial list when the PDFs carry none")
	convertCmd.Flags().StringVar(&convertPDN, "partial-delivery", "", "partial delivery number")
	convertCmd.Flags().StringVar(&convertUndelivered, "undelivered", "", "undelivered quantity lines, 'remaining (of total)' per line")
	convertCmd.Flags().StringVar(&convertRemarks, "remarks", "", "free-form remarks")
	convertCmd.Flags().StringArrayVar(&convertOverrides, "set", nil, "manual field override, field=value (repeatable)")
	convertCmd.Flags().StringVar(&convertTemplateID, "template", "", "template id (default: registry default)")
	convertCmd.Flags().StringVar(&convertOutDir, "out-dir", "", "output directory (default from config)")
	_ = convertCmd.MarkFlagRequired("packing-slip")
	rootCmd.AddCommand(convertCmd)
}
