package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/rlombardo/audit-king/app"
	"github.com/rlombardo/audit-king/checklist"
	"github.com/rlombardo/audit-king/httpx"
	"github.com/rlombardo/audit-king/log"
	"github.com/rlombardo/audit-king/model"
	"github.com/rlombardo/audit-king/routes/middlewares"
)

type createInspectionRequest struct {
	TemplateID string `json:"templateId"`
	SiteName   string `json:"siteName"`
}

func CreateInspection(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := createInspectionRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil || req.TemplateID == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		var templateName, defJson string
		err = app.QueryRowContext(r.Context(), `
			SELECT t.name, t.definition
			FROM template t
			WHERE t.id = ?`,
			req.TemplateID,
		).Scan(&templateName, &defJson)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "create_inspection.template", req.TemplateID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.create_inspection.get_template", err)
			return
		}

		def := checklist.NormalizeJSON([]byte(defJson))
		ownerId, ownerName := middlewares.Identity(r)

		insp := model.Inspection{
			ID:           uuid.NewString(),
			TemplateID:   req.TemplateID,
			TemplateName: templateName,
			SiteName:     req.SiteName,
			Status:       model.StatusInProgress,
			StartedAt:    time.Now(),
			Items:        checklist.Reconcile(def, nil),
			OwnerID:      ownerId,
			OwnerName:    ownerName,
		}

		itemsJson, err := json.Marshal(insp.Items)
		if err != nil {
			httpx.LogInternalError(w, "db.create_inspection.marshal_items", err)
			return
		}

		_, err = app.ExecContext(r.Context(), `
			INSERT INTO inspection (id, template_id, template_name, site_name, status, started_at, items, owner_id, owner_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			insp.ID,
			insp.TemplateID,
			insp.TemplateName,
			insp.SiteName,
			insp.Status,
			insp.StartedAt,
			string(itemsJson),
			insp.OwnerID,
			insp.OwnerName,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.create_inspection", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, insp)
	}
}

func ListInspections(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT i.id, i.template_id, i.template_name, i.site_name, i.status,
				i.score, i.started_at, i.submitted_at, i.owner_id, i.owner_name
			FROM inspection i
			ORDER BY i.started_at DESC`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_inspections", err)
			return
		}
		defer rows.Close()

		inspections := []model.Inspection{}
		for rows.Next() {
			i := model.Inspection{}
			var score sql.NullInt64
			var submittedAt sql.NullTime
			err = rows.Scan(
				&i.ID, &i.TemplateID, &i.TemplateName, &i.SiteName, &i.Status,
				&score, &i.StartedAt, &submittedAt, &i.OwnerID, &i.OwnerName,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.get_inspections.scan", err)
				return
			}

			if score.Valid {
				s := int(score.Int64)
				i.Score = &s
			}
			if submittedAt.Valid {
				i.SubmittedAt = &submittedAt.Time
			}
			inspections = append(inspections, i)
		}

		render.JSON(w, r, map[string]any{
			"inspections": inspections,
		})
	}
}

func GetInspectionById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		insp, ok := loadInspection(app, w, r)
		if !ok {
			return
		}

		if !reconcileCurrent(app, w, r, &insp) {
			return
		}

		render.JSON(w, r, insp)
	}
}

func SaveInspectionItems(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := []model.AnswerItem{}
		err := render.DecodeJSON(r.Body, &items)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		insp, ok := loadInspection(app, w, r)
		if !ok {
			return
		}
		if insp.Status == model.StatusSubmitted {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "save_items.already_submitted")
			return
		}

		stampProvenance(items, insp.Items, r)

		score := checklist.Score(items)
		itemsJson, err := json.Marshal(items)
		if err != nil {
			httpx.LogInternalError(w, "db.save_items.marshal_items", err)
			return
		}

		_, err = app.ExecContext(r.Context(), `
			UPDATE inspection
			SET items = ?, score = ?
			WHERE id = ?`,
			string(itemsJson),
			nullableScore(score),
			insp.ID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.save_items", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"items": items,
			"score": score,
		})
	}
}

func CompleteInspection(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		insp, ok := loadInspection(app, w, r)
		if !ok {
			return
		}
		if insp.Status == model.StatusSubmitted {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "complete_inspection.already_submitted")
			return
		}

		// Validate against the template as it stands now, not the last saved
		// snapshot: a required question added since then must block submission.
		if !reconcileCurrent(app, w, r, &insp) {
			return
		}

		missing := checklist.MissingRequired(insp.Items)
		if len(missing) > 0 {
			httpx.LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel,
				"complete_inspection.missing_required",
				"required questions left unanswered: %s", strings.Join(missing, "; "))
			return
		}

		now := time.Now()
		score := checklist.Score(insp.Items)
		itemsJson, err := json.Marshal(insp.Items)
		if err != nil {
			httpx.LogInternalError(w, "db.complete_inspection.marshal_items", err)
			return
		}
		res, err := app.ExecContext(r.Context(), `
			UPDATE inspection
			SET status = ?, submitted_at = ?, score = ?, items = ?
			WHERE id = ? AND status = ?`,
			model.StatusSubmitted,
			now,
			nullableScore(score),
			string(itemsJson),
			insp.ID,
			model.StatusInProgress,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.complete_inspection", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.complete_inspection.verify", err)
			return
		}
		if n < 1 {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "complete_inspection.conflict")
			return
		}

		insp.Status = model.StatusSubmitted
		insp.SubmittedAt = &now
		insp.Score = score
		render.JSON(w, r, insp)
	}
}

// loadInspection fetches the inspection addressed by the {id} URL parameter,
// replying 404/500 itself when it cannot.
func loadInspection(app app.App, w http.ResponseWriter, r *http.Request) (model.Inspection, bool) {
	inspectionId := chi.URLParam(r, "id")

	insp, err := fetchInspection(app, r.Context(), inspectionId)
	if errors.Is(err, sql.ErrNoRows) {
		httpx.LogNotFound(w, "get_inspection", inspectionId)
		return insp, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_inspection", err)
		return insp, false
	}
	return insp, true
}

// reconcileCurrent refreshes insp.Items against the template's current
// definition, so edits made since the last save show up as fresh blank rows.
// A deleted template leaves the stored snapshot untouched.
func reconcileCurrent(app app.App, w http.ResponseWriter, r *http.Request, insp *model.Inspection) bool {
	var defJson string
	err := app.QueryRowContext(r.Context(), `
		SELECT t.definition FROM template t WHERE t.id = ?`,
		insp.TemplateID,
	).Scan(&defJson)
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_inspection.get_template", err)
		return false
	}

	insp.Items = checklist.Reconcile(checklist.NormalizeJSON([]byte(defJson)), insp.Items)
	return true
}

func fetchInspection(app app.App, ctx context.Context, inspectionId string) (model.Inspection, error) {
	insp := model.Inspection{}
	var score sql.NullInt64
	var submittedAt sql.NullTime
	var itemsJson string
	err := app.QueryRowContext(ctx, `
		SELECT i.id, i.template_id, i.template_name, i.site_name, i.status,
			i.score, i.started_at, i.submitted_at, i.items, i.owner_id, i.owner_name
		FROM inspection i
		WHERE i.id = ?`,
		inspectionId,
	).Scan(
		&insp.ID, &insp.TemplateID, &insp.TemplateName, &insp.SiteName, &insp.Status,
		&score, &insp.StartedAt, &submittedAt, &itemsJson, &insp.OwnerID, &insp.OwnerName,
	)
	if err != nil {
		return insp, err
	}

	if score.Valid {
		s := int(score.Int64)
		insp.Score = &s
	}
	if submittedAt.Valid {
		insp.SubmittedAt = &submittedAt.Time
	}

	err = json.Unmarshal([]byte(itemsJson), &insp.Items)
	if err != nil {
		return insp, fmt.Errorf("parse items: %w", err)
	}

	return insp, nil
}

// stampProvenance marks rows that differ from their stored counterpart with
// the acting user's identity. Untouched rows keep whoever answered them last.
func stampProvenance(items []model.AnswerItem, stored []model.AnswerItem, r *http.Request) {
	actorId, actorName := middlewares.Identity(r)
	if actorId == "" && actorName == "" {
		return
	}

	prev := make(map[string]model.AnswerItem, len(stored))
	for _, item := range stored {
		prev[item.SectionID+"\x00"+item.QuestionID] = item
	}

	for i := range items {
		old, ok := prev[items[i].SectionID+"\x00"+items[i].QuestionID]
		if ok && answerEqual(old, items[i]) {
			continue
		}
		if !ok && isBlank(items[i]) {
			continue
		}
		items[i].AnsweredByID = actorId
		items[i].AnsweredByName = actorName
	}
}

func isBlank(item model.AnswerItem) bool {
	return item.ChoiceKey == nil && item.Notes == "" && len(item.Photos) == 0
}

func answerEqual(a, b model.AnswerItem) bool {
	a.AnsweredByID, b.AnsweredByID = "", ""
	a.AnsweredByName, b.AnsweredByName = "", ""
	return reflect.DeepEqual(a, b)
}

func nullableScore(score *int) any {
	if score == nil {
		return nil
	}
	return *score
}
