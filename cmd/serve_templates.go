package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/coc-switcher/internal/model"
	"github.com/sells-group/coc-switcher/internal/store"
)

func (env *serveEnv) listTemplates(w http.ResponseWriter, req *http.Request) {
	tpls, err := env.store.ListTemplates(req.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if tpls == nil {
		tpls = []model.Template{}
	}
	writeJSON(w, http.StatusOK, tpls)
}

func (env *serveEnv) defaultTemplate(w http.ResponseWriter, req *http.Request) {
	tpl, err := env.store.GetDefaultTemplate(req.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// uploadTemplate registers a DOCX template from a multipart "file" field.
func (env *serveEnv) uploadTemplate(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	if err := os.MkdirAll(env.cfg.Render.TemplatesDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "store template")
		return
	}

	path, err := saveUpload(req, "file", env.cfg.Render.TemplatesDir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if path == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}

	tpl := &model.Template{
		Name:      req.FormValue("name"),
		Version:   req.FormValue("version"),
		Filename:  filepath.Base(path),
		Path:      path,
		IsDefault: req.FormValue("default") == "true",
	}
	if tpl.Name == "" {
		tpl.Name = tpl.Filename
	}

	if err := env.store.CreateTemplate(req.Context(), tpl); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (env *serveEnv) setDefaultTemplate(w http.ResponseWriter, req *http.Request) {
	if err := env.store.SetDefaultTemplate(req.Context(), chi.URLParam(req, "tplID")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (env *serveEnv) deleteTemplate(w http.ResponseWriter, req *http.Request) {
	err := env.store.DeleteTemplate(req.Context(), chi.URLParam(req, "tplID"))
	if err != nil {
		if eris.Is(err, store.ErrLastTemplate) {
			writeError(w, http.StatusConflict, "cannot delete the last template")
			return
		}
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
