package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/kycdoc/internal/domain"
	"github.com/shaiso/kycdoc/internal/repo"
	"github.com/shaiso/kycdoc/internal/storage"
	"github.com/shaiso/kycdoc/internal/telemetry"
)

// SubmitApplication принимает новую заявку.
// POST /api/applications
func (h *Handler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req SubmitApplicationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		Error(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	app, err := req.ToDomain(h.now())
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	text, err := h.summaries.Generate(r.Context(), app)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}
	app.Summary = text

	if err := h.apps.Create(r.Context(), app); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	telemetry.FromContext(r.Context()).Info("application submitted", "entity_id", app.ID)
	Created(w, SubmitApplicationResponse{
		ApplicationID: app.ID,
		Message:       "application submitted successfully",
	})
}

// ListApplications возвращает заявки, новые первыми.
// GET /api/admin/applications?status=...&limit=...&offset=...
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	filter := repo.ApplicationFilter{}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.ApplicationStatus(status)
		if !filter.Status.Valid() {
			BadRequest(w, "invalid status")
			return
		}
	}

	var err error
	if filter.Limit, err = intParam(r, "limit", 100); err != nil {
		BadRequest(w, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(r, "offset", 0); err != nil {
		BadRequest(w, "invalid offset")
		return
	}

	apps, err := h.apps.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	if apps == nil {
		apps = []domain.Application{}
	}

	List(w, apps, len(apps))
}

// GetApplication возвращает заявку по ID.
// GET /api/admin/applications/{id}
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	app, ok := h.loadApplication(w, r)
	if !ok {
		return
	}
	Success(w, app)
}

// ApproveApplication одобряет заявку и ставит задачу генерации документа.
// PUT /api/admin/applications/{id}/approved
//
// Если задачу не удалось поставить в очередь, заявка остаётся одобренной,
// клиент получает 503, а reconciler повторит публикацию позже.
func (h *Handler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	app, ok := h.decide(w, r, domain.ApplicationStatusApproved)
	if !ok {
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if err := h.publisher.Publish(ctx, app.ID.String()); err != nil {
		h.logger.Error("failed to queue document task",
			"entity_id", app.ID,
			"error", err,
		)
		QueueUnavailable(w, "application approved but document generation could not be queued; it will be retried")
		return
	}

	Success(w, DecisionResponse{
		Message:     "application approved and queued for document generation",
		Application: app,
	})
}

// RejectApplication отклоняет заявку.
// PUT /api/admin/applications/{id}/rejected
func (h *Handler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	app, ok := h.decide(w, r, domain.ApplicationStatusRejected)
	if !ok {
		return
	}

	Success(w, DecisionResponse{
		Message:     "application rejected",
		Application: app,
	})
}

// DocumentStatus возвращает состояние документа: not_approved, pending или complete.
// GET /api/admin/applications/{id}/document
func (h *Handler) DocumentStatus(w http.ResponseWriter, r *http.Request) {
	app, ok := h.loadApplication(w, r)
	if !ok {
		return
	}
	Success(w, DocumentStatusFromDomain(app))
}

// DownloadDocument отдаёт PDF документ заявки.
// GET /api/admin/applications/{id}/pdf
//
// 400 — заявка не одобрена, 202 — документ ещё генерируется.
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	app, ok := h.loadApplication(w, r)
	if !ok {
		return
	}

	switch app.DocumentState() {
	case domain.DocumentStateNotApproved:
		Error(w, http.StatusBadRequest, ErrCodeNotApproved, "application not approved yet")
		return
	case domain.DocumentStatePending:
		Accepted(w, DocumentStatusFromDomain(app))
		return
	}

	rc, err := h.documents.Open(r.Context(), app.DocumentPath)
	if errors.Is(err, storage.ErrNotFound) {
		h.logger.Error("document marked generated but missing", "entity_id", app.ID, "locator", app.DocumentPath)
		NotFound(w, "document not found")
		return
	}
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+domain.DocumentName(app.ID)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("document download interrupted", "entity_id", app.ID, "error", err)
	}
}

// decide выставляет статус заявки. Неизвестный или невалидный ID — 404.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request, status domain.ApplicationStatus) (*domain.Application, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFound(w, "application not found")
		return nil, false
	}

	app, err := h.apps.SetStatus(r.Context(), id, status, h.now().UTC())
	if HandleRepoError(w, h.logger, err, "application not found") {
		return nil, false
	}

	telemetry.FromContext(r.Context()).Info("application status changed", "entity_id", id, "status", status)
	return app, true
}

// loadApplication загружает заявку из пути запроса. Неизвестный или невалидный ID — 404.
func (h *Handler) loadApplication(w http.ResponseWriter, r *http.Request) (*domain.Application, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFound(w, "application not found")
		return nil, false
	}

	app, err := h.apps.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "application not found") {
		return nil, false
	}
	return app, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}
