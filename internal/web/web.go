package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfviewer/internal/document"
	"github.com/local/pdfviewer/internal/extract"
	"github.com/local/pdfviewer/internal/metrics"
	"github.com/local/pdfviewer/internal/search"
	"github.com/local/pdfviewer/internal/session"
	"github.com/local/pdfviewer/internal/store"
	"github.com/local/pdfviewer/internal/validate"
)

// Extractor runs the extraction pipeline for an uploaded file.
type Extractor interface {
	ExtractDocument(ctx context.Context, path string, mode document.Mode, assetDir string, tracker extract.Tracker) (*document.Document, error)
	ExtractWithFallback(ctx context.Context, path, assetDir string, tracker extract.Tracker) (*document.Document, error)
}

// Sessions is the per-session state the handlers need.
type Sessions interface {
	SetDocument(ctx context.Context, sid string, ref session.DocumentRef) error
	Document(ctx context.Context, sid string) (session.DocumentRef, bool, error)
	SetCurrentPage(ctx context.Context, sid string, page int) error
	CurrentPage(ctx context.Context, sid string) (int, error)
	AddBookmark(ctx context.Context, sid string, page int) ([]int, error)
	RemoveBookmark(ctx context.Context, sid string, page int) ([]int, error)
	Bookmarks(ctx context.Context, sid string) ([]int, error)
	SetNote(ctx context.Context, sid string, page int, note string) (map[int]string, error)
	Notes(ctx context.Context, sid string) (map[int]string, error)
	SetProgress(ctx context.Context, sid string, snap extract.Snapshot) error
	Progress(ctx context.Context, sid string) (extract.Snapshot, error)
	Clear(ctx context.Context, sid string) error
}

// Dependencies wires the handlers to the rest of the service.
type Dependencies struct {
	Extractor Extractor
	Store     store.Store
	Sessions  Sessions

	UploadDir      string
	AssetRoot      string
	MaxUploadBytes int64
	TemplateDir    string
}

// Web serves the viewer UI and its JSON API.
type Web struct {
	deps Dependencies
	tpl  *template.Template
}

func New(deps Dependencies) *Web {
	tplDir := deps.TemplateDir
	if tplDir == "" {
		tplDir = filepath.Join("web", "templates")
	}
	tpl := template.Must(template.ParseGlob(filepath.Join(tplDir, "*.html")))
	return &Web{deps: deps, tpl: tpl}
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", w.handleIndex)
	mux.HandleFunc("/upload", w.handleUpload)
	mux.HandleFunc("/api/page/", w.handlePage)
	mux.HandleFunc("/api/search", w.handleSearch)
	mux.HandleFunc("/api/bookmark", w.handleBookmark)
	mux.HandleFunc("/api/notes", w.handleNotes)
	mux.HandleFunc("/api/progress", w.handleProgress)
	mux.HandleFunc("/clear", w.handleClear)
	mux.Handle("/static/", http.StripPrefix("/static/",
		http.FileServer(http.Dir(w.deps.AssetRoot))))
}

// sid returns the session id cookie, minting one when absent.
func (w *Web) sid(wr http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie("sid"); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(wr, &http.Cookie{Name: "sid", Value: id, Path: "/", HttpOnly: true})
	return id
}

func writeJSON(wr http.ResponseWriter, status int, v any) {
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(status)
	_ = json.NewEncoder(wr).Encode(v)
}

func writeError(wr http.ResponseWriter, status int, msg string) {
	writeJSON(wr, status, map[string]string{"message": msg})
}

func (w *Web) handleIndex(wr http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(wr, r)
		return
	}
	sid := w.sid(wr, r)
	ctx := r.Context()

	data := map[string]any{}
	if ref, ok, err := w.deps.Sessions.Document(ctx, sid); err == nil && ok {
		data["Document"] = ref
		if page, err := w.deps.Sessions.CurrentPage(ctx, sid); err == nil {
			data["CurrentPage"] = page
		}
		if marks, err := w.deps.Sessions.Bookmarks(ctx, sid); err == nil {
			data["Bookmarks"] = marks
		}
		if notes, err := w.deps.Sessions.Notes(ctx, sid); err == nil {
			data["Notes"] = notes
		}
	}
	if err := w.tpl.ExecuteTemplate(wr, "index.html", data); err != nil {
		log.Error().Err(err).Msg("template render failed")
	}
}

func (w *Web) handleUpload(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		wr.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sid := w.sid(wr, r)
	ctx := r.Context()

	r.Body = http.MaxBytesReader(wr, r.Body, w.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		metrics.RecordUpload("rejected")
		writeError(wr, http.StatusRequestEntityTooLarge, "File is too large")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		metrics.RecordUpload("rejected")
		writeError(wr, http.StatusBadRequest, "No file selected")
		return
	}
	defer file.Close()

	if err := validate.Filename(hdr.Filename); err != nil {
		metrics.RecordUpload("rejected")
		writeError(wr, http.StatusBadRequest, uploadRejection(err))
		return
	}

	// Optional explicit mode; empty means structured with raster fallback.
	mode := document.Mode(r.FormValue("mode"))
	if mode != "" && !mode.Valid() {
		metrics.RecordUpload("rejected")
		writeError(wr, http.StatusBadRequest, "Unknown extraction mode")
		return
	}

	_ = w.deps.Sessions.SetProgress(ctx, sid, extract.Snapshot{
		Status: extract.StatusUploading, Message: "Receiving file",
	})

	path, err := w.saveUpload(file, hdr.Filename)
	if err != nil {
		metrics.RecordUpload("failed")
		log.Error().Err(err).Msg("upload save failed")
		w.failProgress(ctx, sid, "Could not store the uploaded file")
		writeError(wr, http.StatusInternalServerError, "Could not store the uploaded file")
		return
	}
	defer os.Remove(path)

	if err := validate.File(path); err != nil {
		metrics.RecordUpload("rejected")
		w.failProgress(ctx, sid, uploadRejection(err))
		writeError(wr, http.StatusBadRequest, uploadRejection(err))
		return
	}

	id, err := store.DeriveID(path)
	if err != nil {
		metrics.RecordUpload("failed")
		w.failProgress(ctx, sid, "Could not process the uploaded file")
		writeError(wr, http.StatusInternalServerError, "Could not process the uploaded file")
		return
	}

	tracker := extract.TrackerFunc(func(s extract.Snapshot) {
		_ = w.deps.Sessions.SetProgress(ctx, sid, s)
	})
	assetDir := filepath.Join(w.deps.AssetRoot, string(id))

	doc, err := w.runExtraction(ctx, mode, path, assetDir, tracker)
	if err != nil {
		metrics.RecordUpload("failed")
		log.Error().Err(err).Str("id", string(id)).Msg("extraction failed")
		w.failProgress(ctx, sid, "Could not extract any content from this PDF")
		writeError(wr, http.StatusUnprocessableEntity, "Could not extract any content from this PDF")
		return
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(hdr.Filename, filepath.Ext(hdr.Filename))
	}

	_ = w.deps.Sessions.SetProgress(ctx, sid, extract.Snapshot{
		Status: extract.StatusSaving, Percent: 100, Message: "Saving extracted content",
	})
	if err := w.deps.Store.Save(ctx, id, doc); err != nil {
		metrics.RecordUpload("failed")
		log.Error().Err(err).Str("id", string(id)).Msg("document save failed")
		w.failProgress(ctx, sid, "Could not save the extracted content")
		writeError(wr, http.StatusInternalServerError, "Could not save the extracted content")
		return
	}

	ref := session.DocumentRef{
		ID:         id,
		Title:      doc.Title,
		TotalPages: doc.TotalPages,
		Filename:   hdr.Filename,
	}
	if err := w.deps.Sessions.SetDocument(ctx, sid, ref); err != nil {
		log.Error().Err(err).Msg("session update failed")
	}
	_ = w.deps.Sessions.SetCurrentPage(ctx, sid, 1)
	_ = w.deps.Sessions.SetProgress(ctx, sid, extract.Snapshot{
		Status: extract.StatusComplete, Percent: 100, Message: "Ready",
	})

	metrics.RecordUpload("accepted")
	writeJSON(wr, http.StatusOK, map[string]any{
		"message":          "File uploaded successfully",
		"document_id":      id,
		"title":            doc.Title,
		"total_page_count": doc.TotalPages,
		"mode":             doc.Mode,
	})
}

func uploadRejection(err error) string {
	switch {
	case errors.Is(err, validate.ErrEmptyFilename):
		return "No file selected"
	case errors.Is(err, validate.ErrNotPDF):
		return "Please upload a PDF file"
	default:
		return "The file could not be read as a PDF"
	}
}

func (w *Web) saveUpload(file io.Reader, name string) (string, error) {
	if err := os.MkdirAll(w.deps.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	out, err := os.CreateTemp(w.deps.UploadDir, "upload-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	return out.Name(), nil
}

// runExtraction dispatches to the requested mode's chain, or to the default
// structured-then-rasterized fallback when no mode was requested.
func (w *Web) runExtraction(ctx context.Context, mode document.Mode, path, assetDir string, tracker extract.Tracker) (*document.Document, error) {
	if mode == "" {
		return w.deps.Extractor.ExtractWithFallback(ctx, path, assetDir, tracker)
	}
	return w.deps.Extractor.ExtractDocument(ctx, path, mode, assetDir, tracker)
}

func (w *Web) failProgress(ctx context.Context, sid, msg string) {
	_ = w.deps.Sessions.SetProgress(ctx, sid, extract.Snapshot{
		Status: extract.StatusError, Message: msg,
	})
}

// loadCurrent resolves the session's open document.
func (w *Web) loadCurrent(ctx context.Context, sid string) (session.DocumentRef, *document.Document, error) {
	ref, ok, err := w.deps.Sessions.Document(ctx, sid)
	if err != nil {
		return ref, nil, err
	}
	if !ok {
		return ref, nil, store.ErrNotFound
	}
	doc, err := w.deps.Store.Load(ctx, ref.ID)
	return ref, doc, err
}

func (w *Web) handlePage(wr http.ResponseWriter, r *http.Request) {
	sid := w.sid(wr, r)
	ctx := r.Context()

	numStr := strings.TrimPrefix(r.URL.Path, "/api/page/")
	num, err := strconv.Atoi(numStr)
	if err != nil || num < 1 {
		writeError(wr, http.StatusBadRequest, "Invalid page number")
		return
	}

	ref, doc, err := w.loadCurrent(ctx, sid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(wr, http.StatusNotFound, "No document loaded")
			return
		}
		log.Error().Err(err).Msg("document load failed")
		writeError(wr, http.StatusInternalServerError, "Could not load the document")
		return
	}

	page := doc.Page(num)
	if page == nil {
		writeError(wr, http.StatusNotFound, "Page not found")
		return
	}
	_ = w.deps.Sessions.SetCurrentPage(ctx, sid, num)

	marks, _ := w.deps.Sessions.Bookmarks(ctx, sid)
	bookmarked := false
	for _, b := range marks {
		if b == num {
			bookmarked = true
			break
		}
	}
	notes, _ := w.deps.Sessions.Notes(ctx, sid)

	resp := map[string]any{
		"document_id":      ref.ID,
		"mode":             doc.Mode,
		"total_page_count": doc.TotalPages,
		"page":             page,
		"bookmarked":       bookmarked,
	}
	if note, ok := notes[num]; ok {
		resp["note"] = note
	}
	writeJSON(wr, http.StatusOK, resp)
}

func (w *Web) handleSearch(wr http.ResponseWriter, r *http.Request) {
	sid := w.sid(wr, r)
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(wr, http.StatusBadRequest, "Search query is empty")
		return
	}

	_, doc, err := w.loadCurrent(ctx, sid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(wr, http.StatusNotFound, "No document loaded")
			return
		}
		writeError(wr, http.StatusInternalServerError, "Could not load the document")
		return
	}

	metrics.RecordSearch()
	results := search.Document(doc, query)
	total := 0
	for _, pr := range results {
		total += len(pr.Matches)
	}
	writeJSON(wr, http.StatusOK, map[string]any{
		"query":         query,
		"total_matches": total,
		"results":       results,
	})
}

func (w *Web) handleBookmark(wr http.ResponseWriter, r *http.Request) {
	sid := w.sid(wr, r)
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		marks, err := w.deps.Sessions.Bookmarks(ctx, sid)
		if err != nil {
			writeError(wr, http.StatusInternalServerError, "Could not load bookmarks")
			return
		}
		writeJSON(wr, http.StatusOK, map[string]any{"bookmarks": marks})

	case http.MethodPost:
		var req struct {
			Page   int    `json:"page"`
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Page < 1 {
			writeError(wr, http.StatusBadRequest, "Invalid bookmark request")
			return
		}
		var marks []int
		var err error
		switch req.Action {
		case "add", "":
			marks, err = w.deps.Sessions.AddBookmark(ctx, sid, req.Page)
		case "remove":
			marks, err = w.deps.Sessions.RemoveBookmark(ctx, sid, req.Page)
		default:
			writeError(wr, http.StatusBadRequest, "Unknown bookmark action")
			return
		}
		if err != nil {
			writeError(wr, http.StatusInternalServerError, "Could not update bookmarks")
			return
		}
		writeJSON(wr, http.StatusOK, map[string]any{"bookmarks": marks})

	default:
		wr.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (w *Web) handleNotes(wr http.ResponseWriter, r *http.Request) {
	sid := w.sid(wr, r)
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		notes, err := w.deps.Sessions.Notes(ctx, sid)
		if err != nil {
			writeError(wr, http.StatusInternalServerError, "Could not load notes")
			return
		}
		writeJSON(wr, http.StatusOK, map[string]any{"notes": notes})

	case http.MethodPost:
		var req struct {
			Page int    `json:"page"`
			Note string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Page < 1 {
			writeError(wr, http.StatusBadRequest, "Invalid note request")
			return
		}
		notes, err := w.deps.Sessions.SetNote(ctx, sid, req.Page, req.Note)
		if err != nil {
			writeError(wr, http.StatusInternalServerError, "Could not save the note")
			return
		}
		writeJSON(wr, http.StatusOK, map[string]any{"notes": notes})

	default:
		wr.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (w *Web) handleProgress(wr http.ResponseWriter, r *http.Request) {
	sid := w.sid(wr, r)
	snap, err := w.deps.Sessions.Progress(r.Context(), sid)
	if err != nil {
		writeError(wr, http.StatusInternalServerError, "Could not read progress")
		return
	}
	writeJSON(wr, http.StatusOK, snap)
}

func (w *Web) handleClear(wr http.ResponseWriter, r *http.Request) {
	sid := w.sid(wr, r)
	if err := w.deps.Sessions.Clear(r.Context(), sid); err != nil {
		writeError(wr, http.StatusInternalServerError, "Could not clear the session")
		return
	}
	http.Redirect(wr, r, "/", http.StatusSeeOther)
}
