package routes

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/rlombardo/audit-king/app"
	"github.com/rlombardo/audit-king/checklist"
	"github.com/rlombardo/audit-king/httpx"
	"github.com/rlombardo/audit-king/log"
	"github.com/rlombardo/audit-king/model"
	"github.com/rlombardo/audit-king/report"
)

func DownloadReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		insp, ok := loadInspection(app, w, r)
		if !ok {
			return
		}

		tpl, ok := loadReportTemplate(app, w, r, insp)
		if !ok {
			return
		}

		w.Header().Set("content-type", "application/pdf")
		w.Header().Set("content-disposition",
			fmt.Sprintf(`attachment; filename=%q`, report.Filename(insp)))

		err := report.Render(w, tpl, insp, report.Options{EmbedImages: true})
		if err != nil {
			log.Errorf("report.render: %s", err)
		}
	}
}

type bulkReportRequest struct {
	IDs []string `json:"ids"`
}

func BulkReports(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := bulkReportRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil || len(req.IDs) == 0 {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		exports := []report.Export{}
		for _, inspectionId := range req.IDs {
			insp, err := fetchInspection(app, r.Context(), inspectionId)
			if errors.Is(err, sql.ErrNoRows) {
				httpx.LogNotFound(w, "bulk_reports", inspectionId)
				return
			}
			if err != nil {
				httpx.LogInternalError(w, "db.bulk_reports.get_inspection", err)
				return
			}
			tpl, ok := loadReportTemplate(app, w, r, insp)
			if !ok {
				return
			}
			exports = append(exports, report.Export{Template: tpl, Inspection: insp})
		}

		name := fmt.Sprintf("inspections-%s.zip", time.Now().Format("20060102"))
		w.Header().Set("content-type", "application/zip")
		w.Header().Set("content-disposition", fmt.Sprintf(`attachment; filename=%q`, name))

		err = report.RenderBulk(w, exports)
		if err != nil {
			log.Errorf("report.render_bulk: %s", err)
		}
	}
}

// loadReportTemplate resolves the definition a report is rendered against:
// the template's current definition when it still exists, or a definition
// rebuilt from the inspection's own stored rows after template deletion.
func loadReportTemplate(app app.App, w http.ResponseWriter, r *http.Request, insp model.Inspection) (model.Template, bool) {
	tpl := model.Template{ID: insp.TemplateID, Name: insp.TemplateName}

	var defJson string
	err := app.QueryRowContext(r.Context(), `
		SELECT t.definition FROM template t WHERE t.id = ?`,
		insp.TemplateID,
	).Scan(&defJson)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		tpl.Definition = definitionFromItems(insp.Items)
		return tpl, true
	case err != nil:
		httpx.LogInternalError(w, "db.report.get_template", err)
		return tpl, false
	}

	tpl.Definition = checklist.NormalizeJSON([]byte(defJson))
	return tpl, true
}

// definitionFromItems reconstructs a minimal section/question skeleton from
// answer rows, so orphaned inspections stay exportable.
func definitionFromItems(items []model.AnswerItem) model.Definition {
	def := model.Definition{Sections: []model.Section{}}
	idx := map[string]int{}
	for _, item := range items {
		i, ok := idx[item.SectionID]
		if !ok {
			i = len(def.Sections)
			idx[item.SectionID] = i
			def.Sections = append(def.Sections, model.Section{
				ID:    item.SectionID,
				Title: "Section",
			})
		}
		def.Sections[i].Questions = append(def.Sections[i].Questions, model.Question{
			ID:       item.QuestionID,
			Label:    item.QuestionLabel,
			Type:     item.QuestionType,
			Required: item.Required,
		})
	}
	return def
}
