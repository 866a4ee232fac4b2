package http

import (
	"net/http"
	"strconv"
	"strings"

	"scontrini/internal/core"
)

type indexData struct {
	Month         string
	Summary       []core.BudgetRow
	Categories    []string
	Pending       []core.PendingBatch
	RecentUploads []core.UploadRecord
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	data := indexData{Month: s.budgets.CurrentMonth()}

	var err error
	if data.Summary, err = s.budgets.Summary(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Summary error", "error", err)
	}
	if data.Categories, err = s.budgets.Categories(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Categories error", "error", err)
	}
	if data.Pending, err = s.store.PendingBatches(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Pending batches error", "error", err)
	}
	if data.RecentUploads, err = s.store.RecentUploads(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Recent uploads error", "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(ctx, "Index template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleUpload accepts a multipart receipt image and runs the pipeline.
// Every failure mode logs and lands back on the index page; the UI has
// no separate error surface.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.logger.WarnContext(ctx, "Rejected upload form", "error", err)
		s.redirectHome(w, r)
		return
	}
	file, header, err := r.FormFile("receipt")
	if err != nil {
		s.logger.WarnContext(ctx, "Upload without receipt file", "error", err)
		s.redirectHome(w, r)
		return
	}
	defer file.Close()

	result, err := s.uploads.ProcessUpload(ctx, header.Filename, file)
	if err != nil {
		s.logger.ErrorContext(ctx, "Receipt processing failed",
			"filename", header.Filename, "kind", core.KindOf(err), "error", err)
		s.redirectHome(w, r)
		return
	}
	s.logger.InfoContext(ctx, "Upload accepted",
		"filename", header.Filename,
		"items", result.Items,
		"resolved", result.Resolved,
		"unresolved", result.Unresolved)
	s.redirectHome(w, r)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		s.logger.WarnContext(ctx, "Rejected budget form", "error", err)
		s.redirectHome(w, r)
		return
	}
	category := r.PostForm.Get("category")
	amount := r.PostForm.Get("amount")
	if err := s.budgets.SetBudget(ctx, category, amount); err != nil {
		s.logger.ErrorContext(ctx, "Set budget failed", "category", category, "error", err)
	}
	s.redirectHome(w, r)
}

// handleResolve posts user-picked categories for one pending batch.
// Item choices arrive as category_<position> form fields.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		s.logger.WarnContext(ctx, "Rejected resolution form", "error", err)
		s.redirectHome(w, r)
		return
	}
	batchID := strings.TrimSpace(r.PostForm.Get("batch_id"))
	if batchID == "" {
		s.logger.WarnContext(ctx, "Resolution without batch id")
		s.redirectHome(w, r)
		return
	}

	categories := make(map[int]string)
	for key := range r.PostForm {
		idx, ok := strings.CutPrefix(key, "category_")
		if !ok {
			continue
		}
		position, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}
		categories[position] = r.PostForm.Get(key)
	}

	resolved, err := s.resolutions.Resolve(ctx, batchID, categories)
	if err != nil {
		s.logger.ErrorContext(ctx, "Batch resolution failed", "batch_id", batchID, "error", err)
	} else if !resolved {
		s.logger.WarnContext(ctx, "Batch already resolved or unknown", "batch_id", batchID)
	}
	s.redirectHome(w, r)
}

func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
