package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coc-switcher/internal/config"
	"github.com/sells-group/coc-switcher/internal/extract"
	"github.com/sells-group/coc-switcher/internal/model"
	"github.com/sells-group/coc-switcher/internal/pipeline"
	"github.com/sells-group/coc-switcher/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the conversion API server",
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

		env := &serveEnv{cfg: cfg, store: st, pipeline: p}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// serveEnv bundles the dependencies the HTTP handlers need.
type serveEnv struct {
	cfg      *config.Config
	store    store.Store
	pipeline *pipeline.Pipeline
}

func newRouter(env *serveEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: env.cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/jobs", func(r chi.Router) {
		r.Post("/", env.createJob)
		r.Get("/", env.listJobs)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", env.getJob)
			r.Delete("/", env.deleteJob)
			r.Post("/files", env.uploadFiles)
			r.Post("/parse", env.parseJob)
			r.Post("/validate", env.validateJob)
			r.Post("/render", env.renderJob)
			r.Get("/download/{kind}", env.downloadJob)
		})
	})

	r.Route("/api/templates", func(r chi.Router) {
		r.Get("/", env.listTemplates)
		r.Get("/default", env.defaultTemplate)
		r.Post("/", env.uploadTemplate)
		r.Post("/{tplID}/set-default", env.setDefaultTemplate)
		r.Delete("/{tplID}", env.deleteTemplate)
	})

	return r
}

func (env *serveEnv) createJob(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Name        string `json:"name"`
		SubmittedBy string `json:"submitted_by"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	job, err := env.store.CreateJob(req.Context(), body.Name, body.SubmittedBy)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (env *serveEnv) listJobs(w http.ResponseWriter, req *http.Request) {
	jobs, err := env.store.ListJobs(req.Context(), store.JobFilter{
		Status: model.JobStatus(req.URL.Query().Get("status")),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (env *serveEnv) getJob(w http.ResponseWriter, req *http.Request) {
	job, err := env.store.GetJob(req.Context(), chi.URLParam(req, "jobID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (env *serveEnv) deleteJob(w http.ResponseWriter, req *http.Request) {
	if err := env.store.DeleteJob(req.Context(), chi.URLParam(req, "jobID")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadFiles accepts multipart form fields named after document kinds
// (certificate, packing_slip) plus an optional serials sheet.
func (env *serveEnv) uploadFiles(w http.ResponseWriter, req *http.Request) {
	job, err := env.store.GetJob(req.Context(), chi.URLParam(req, "jobID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if err := req.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	dir := filepath.Join(env.cfg.Render.UploadsDir, job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "store upload")
		return
	}

	if job.Files == nil {
		job.Files = map[model.DocumentKind]string{}
	}
	for _, kind := range []model.DocumentKind{model.DocCertificate, model.DocPackingSlip} {
		path, err := saveUpload(req, string(kind), dir)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if path != "" {
			job.Files[kind] = path
		}
	}
	path, err := saveUpload(req, "serials", dir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if path != "" {
		// Parse applies the sheet; merge now only when this job already was
		// parsed, so a late upload still lands.
		job.Files[model.DocSerialSheet] = path
		if job.Extracted != nil {
			serials, err := extract.ReadSerialSheet(path)
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable serial sheet")
				return
			}
			env.pipeline.MergeSerials(job, serials)
		}
	}

	if err := env.store.UpdateJob(req.Context(), job); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (env *serveEnv) parseJob(w http.ResponseWriter, req *http.Request) {
	job, err := env.store.GetJob(req.Context(), chi.URLParam(req, "jobID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if job.Files[model.DocPackingSlip] == "" {
		writeError(w, http.StatusBadRequest, "packing slip not uploaded")
		return
	}

	if err := env.pipeline.Extract(req.Context(), job); err != nil {
		writeError(w, http.StatusUnprocessableEntity, eris.Cause(err).Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// validateJob accepts optional manual data in the body, merges and validates.
func (env *serveEnv) validateJob(w http.ResponseWriter, req *http.Request) {
	job, err := env.store.GetJob(req.Context(), chi.URLParam(req, "jobID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if req.ContentLength > 0 {
		var manual model.ManualData
		if err := json.NewDecoder(req.Body).Decode(&manual); err != nil {
			writeError(w, http.StatusBadRequest, "invalid manual data")
			return
		}
		job.Manual = &manual
	}

	result, err := env.pipeline.Validate(req.Context(), job)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (env *serveEnv) renderJob(w http.ResponseWriter, req *http.Request) {
	job, err := env.store.GetJob(req.Context(), chi.URLParam(req, "jobID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var body struct {
		TemplateID string `json:"template_id"`
	}
	if req.ContentLength > 0 {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	tpl, err := env.pipeline.ResolveTemplate(req.Context(), body.TemplateID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if err := env.pipeline.Render(req.Context(), job, tpl); err != nil {
		if eris.Is(err, pipeline.ErrBlocked) {
			writeJSON(w, http.StatusConflict, job.Validation)
			return
		}
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	writeJSON(w, http.StatusOK, job.Rendered)
}

func (env *serveEnv) downloadJob(w http.ResponseWriter, req *http.Request) {
	job, err := env.store.GetJob(req.Context(), chi.URLParam(req, "jobID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if job.Rendered == nil {
		writeError(w, http.StatusNotFound, "job has no rendered output")
		return
	}

	var path string
	switch chi.URLParam(req, "kind") {
	case "docx":
		path = job.Rendered.Path
	case "pdf":
		path = job.Rendered.PDFPath
	default:
		writeError(w, http.StatusBadRequest, "kind must be docx or pdf")
		return
	}
	if path == "" {
		writeError(w, http.StatusNotFound, "output not available")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(path))
	http.ServeFile(w, req, path)
}

// saveUpload stores one multipart file field on disk, returning "" when the
// field is absent.
func saveUpload(req *http.Request, field, dir string) (string, error) {
	file, header, err := req.FormFile(field)
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "upload %s", field)
	}
	defer file.Close()

	path := filepath.Join(dir, filepath.Base(header.Filename))
	out, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "store %s", field)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", eris.Wrapf(err, "write %s", field)
	}
	return path, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("store operation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
