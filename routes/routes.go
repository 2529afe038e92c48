package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rlombardo/audit-king/app"
	"github.com/rlombardo/audit-king/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	// inspectors and admins
	api.Group(func(r chi.Router) {
		r.Use(middlewares.Authenticated(app.TokenSecret))

		r.Get("/templates", ListTemplates(app))
		r.Get("/templates/{id}", GetTemplateById(app))

		r.Post("/inspections", CreateInspection(app))
		r.Get("/inspections", ListInspections(app))
		r.Get("/inspections/{id}", GetInspectionById(app))
		r.Put("/inspections/{id}/items", SaveInspectionItems(app))
		r.Post("/inspections/{id}/complete", CompleteInspection(app))

		r.Get("/inspections/{id}/report", DownloadReport(app))
		r.Post("/reports/bulk", BulkReports(app))
	})

	// template authoring
	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		r.Post("/templates", CreateTemplate(app))
		r.Put("/templates/{id}", UpdateTemplate(app))
		r.Delete("/templates/{id}", DeleteTemplate(app))
		r.Post("/templates/extract", ExtractTemplate(app))
	})

	return api
}
