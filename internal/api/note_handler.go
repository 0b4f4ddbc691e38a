package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/api/shared"
	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/service"
	"github.com/companion-app/companion-api/internal/store"
	"github.com/companion-app/companion-api/internal/task"
)

// NoteHandler handles note API requests. All routes require authentication
// and are scoped to the authenticated user's own notes.
type NoteHandler struct {
	noteService service.NoteService
	logger      *slog.Logger
}

// NewNoteHandler creates a new NoteHandler with the given dependencies.
func NewNoteHandler(noteService service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
		logger:      logger.With("component", "note_handler"),
	}
}

// CreateNote handles POST /notes.
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateNoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	note, err := h.noteService.CreateNote(
		r.Context(),
		userID,
		req.Title,
		req.Content,
		domain.NoteContentType(req.ContentType),
		req.Tags,
	)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewNoteResponse(note))
}

// GetNote handles GET /notes/{id}.
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	note, err := h.noteService.GetNote(r.Context(), userID, noteID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewNoteResponse(note))
}

// UpdateNote handles PATCH /notes/{id}.
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateNoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	update := service.NoteUpdate{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	}
	if req.ContentType != nil {
		contentType := domain.NoteContentType(*req.ContentType)
		update.ContentType = &contentType
	}

	note, err := h.noteService.UpdateNote(r.Context(), userID, noteID, update)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewNoteResponse(note))
}

// DeleteNote handles DELETE /notes/{id}.
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.noteService.DeleteNote(r.Context(), userID, noteID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListNotes handles GET /notes with pagination, search, tag, and sort
// query parameters.
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	params := noteListParamsFromQuery(r)

	notes, total, err := h.noteService.ListNotes(r.Context(), userID, params)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := NoteListResponse{
		Notes:  make([]NoteResponse, 0, len(notes)),
		Total:  total,
		Limit:  params.PageSize,
		Offset: (params.Page - 1) * params.PageSize,
	}
	for _, note := range notes {
		resp.Notes = append(resp.Notes, NewNoteResponse(note))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetNoteStats handles GET /notes/stats.
func (h *NoteHandler) GetNoteStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	stats, err := h.noteService.GetNoteStats(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// EnhanceNote handles POST /notes/{id}/enhance. It queues a background
// task and responds 202 with the task ID.
func (h *NoteHandler) EnhanceNote(w http.ResponseWriter, r *http.Request) {
	h.requestNoteTask(w, r, h.noteService.EnhanceNote)
}

// SummarizeNote handles POST /notes/{id}/summarize.
func (h *NoteHandler) SummarizeNote(w http.ResponseWriter, r *http.Request) {
	h.requestNoteTask(w, r, h.noteService.SummarizeNote)
}

func (h *NoteHandler) requestNoteTask(
	w http.ResponseWriter,
	r *http.Request,
	request func(ctx context.Context, userID, noteID uuid.UUID) (uuid.UUID, error),
) {
	userID, noteID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	taskID, err := request(r.Context(), userID, noteID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{
		TaskID: taskID,
		Status: string(task.TaskStatusPending),
	})
}

// noteListParamsFromQuery translates list query parameters to store params.
// Unknown or malformed values fall back to defaults via Normalize.
func noteListParamsFromQuery(r *http.Request) store.NoteListParams {
	q := r.URL.Query()

	params := store.NoteListParams{
		Search:      q.Get("search"),
		ContentType: domain.NoteContentType(q.Get("content_type")),
		SortBy:      store.NoteSortField(q.Get("sort_by")),
	}

	if tags := q.Get("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				params.Tags = append(params.Tags, tag)
			}
		}
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		params.Page = page
	}
	if pageSize, err := strconv.Atoi(q.Get("page_size")); err == nil {
		params.PageSize = pageSize
	}
	params.SortDescending = q.Get("sort_dir") != "asc"

	params.Normalize()
	return params
}
