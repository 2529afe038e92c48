package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/rlombardo/audit-king/ai"
	"github.com/rlombardo/audit-king/app"
	"github.com/rlombardo/audit-king/checklist"
	"github.com/rlombardo/audit-king/httpx"
	"github.com/rlombardo/audit-king/log"
	"github.com/rlombardo/audit-king/model"
)

// templateRequest keeps the definition raw so it goes through the normalizer
// instead of typed decoding: stored and submitted shapes are never trusted.
type templateRequest struct {
	Version     int             `json:"version"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Definition  json.RawMessage `json:"definition"`
}

func CreateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := templateRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		def := checklist.NormalizeJSON(req.Definition)
		defJson, err := json.Marshal(def)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_template.marshal_definition", err)
			return
		}

		templateId := uuid.NewString()
		now := time.Now()
		_, err = app.ExecContext(r.Context(), `
			INSERT INTO template (id, version, name, description, definition, created_at, updated_at)
			VALUES (?, 1, ?, ?, ?, ?, ?)`,
			templateId,
			req.Name,
			req.Description,
			string(defJson),
			now,
			now,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_template", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": templateId,
		})
	}
}

func ListTemplates(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT t.id, t.version, t.name, t.description, t.created_at, t.updated_at
			FROM template t
			ORDER BY t.updated_at DESC`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_templates", err)
			return
		}
		defer rows.Close()

		templates := []model.Template{}
		for rows.Next() {
			t := model.Template{}
			err = rows.Scan(&t.ID, &t.Version, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
			if err != nil {
				httpx.LogInternalError(w, "db.get_templates.scan", err)
				return
			}

			templates = append(templates, t)
		}

		render.JSON(w, r, map[string]any{
			"templates": templates,
		})
	}
}

func GetTemplateById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId := chi.URLParam(r, "id")

		t := model.Template{}
		var defJson string
		err := app.QueryRowContext(r.Context(), `
			SELECT t.id, t.version, t.name, t.description, t.definition, t.created_at, t.updated_at
			FROM template t
			WHERE t.id = ?`,
			templateId,
		).Scan(&t.ID, &t.Version, &t.Name, &t.Description, &defJson, &t.CreatedAt, &t.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_template", templateId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_template", err)
			return
		}

		t.Definition = checklist.NormalizeJSON([]byte(defJson))
		render.JSON(w, r, t)
	}
}

func UpdateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId := chi.URLParam(r, "id")

		req := templateRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		def := checklist.NormalizeJSON(req.Definition)
		defJson, err := json.Marshal(def)
		if err != nil {
			httpx.LogInternalError(w, "db.update_template.marshal_definition", err)
			return
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE template
			SET
				name = ?,
				description = ?,
				definition = ?,
				updated_at = ?,
				version = version+1
			WHERE	id = ?
				AND version = ?`,
			req.Name,
			req.Description,
			string(defJson),
			time.Now(),
			templateId,
			req.Version,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_template", err)
			return
		}
		// optimistic lock
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_template.verify", err)
			return
		}
		if n < 1 {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_template.verify.conflict")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteTemplate removes the template row only. Inspections keep working off
// their denormalized name and stored items.
func DeleteTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId := chi.URLParam(r, "id")

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM template WHERE id = ?`,
			templateId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_template", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_template.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_template", templateId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type extractRequest struct {
	Text                   string `json:"text"`
	MaxSections            int    `json:"maxSections"`
	MaxQuestionsPerSection int    `json:"maxQuestionsPerSection"`
}

func ExtractTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.AI == nil {
			httpx.LogStatus(w, http.StatusServiceUnavailable, log.WarnLevel, "ai.extract.disabled")
			return
		}

		req := extractRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil || req.Text == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		ex, err := app.AI.Extract(r.Context(), req.Text, req.MaxSections, req.MaxQuestionsPerSection)
		if errors.Is(err, ai.ErrBadModelOutput) {
			httpx.LogStatusMsg(w, http.StatusBadGateway, log.WarnLevel, "ai.extract.bad_output",
				"could not extract a template from the document")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "ai.extract", err)
			return
		}

		render.JSON(w, r, ex)
	}
}
