package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/coc-switcher/internal/model"
	"github.com/sells-group/coc-switcher/internal/pipeline"
)

var batchDir string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Convert every shipment directory under a root directory",
	Long:  "Each subdirectory holds one shipment: packing_slip.pdf (required), certificate.pdf, serials.xlsx and manual.json (all optional). Failures are logged per shipment and do not abort the batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := pipeline.New(cfg, st)
		if err != nil {
			return err
		}

		entries, err := os.ReadDir(batchDir)
		if err != nil {
			return eris.Wrap(err, "read batch directory")
		}

		var converted, failed atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrentJobs)

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(batchDir, entry.Name())
			g.Go(func() error {
				if err := convertDir(gctx, p, dir); err != nil {
					failed.Add(1)
					zap.L().Error("shipment failed",
						zap.String("dir", dir),
						zap.Error(err))
					return nil
				}
				converted.Add(1)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int64("converted", converted.Load()),
			zap.Int64("failed", failed.Load()))
		if failed.Load() > 0 {
			return eris.Errorf("%d of %d shipments failed", failed.Load(), converted.Load()+failed.Load())
		}
		return nil
	},
}

// convertDir runs one shipment directory through the pipeline.
func convertDir(ctx context.Context, p *pipeline.Pipeline, dir string) error {
	in := pipeline.ConvertInput{
		Name:            filepath.Base(dir),
		PackingSlipPath: filepath.Join(dir, "packing_slip.pdf"),
	}
	if _, err := os.Stat(in.PackingSlipPath); err != nil {
		return eris.Wrap(err, "packing_slip.pdf")
	}
	if path := filepath.Join(dir, "certificate.pdf"); fileReadable(path) {
		in.CertificatePath = path
	}
	if path := filepath.Join(dir, "serials.xlsx"); fileReadable(path) {
		in.SerialSheetPath = path
	}

	if path := filepath.Join(dir, "manual.json"); fileReadable(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrap(err, "manual.json")
		}
		var manual model.ManualData
		if err := json.Unmarshal(data, &manual); err != nil {
			return eris.Wrap(err, "manual.json")
		}
		in.Manual = &manual
	}

	_, err := p.Run(ctx, in)
	return err
}

func fileReadable(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "root directory of shipment subdirectories (required)")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}
