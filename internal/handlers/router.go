package handlers

import (
	"net/http"

	"github.com/clinova/medbook/internal/middleware"
	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/services"
	"github.com/go-chi/chi/v5"
)

// Deps bundles everything the router needs.
type Deps struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Permissions   *PermissionHandler
	Doctors       *DoctorHandler
	Appointments  *AppointmentHandler
	Notifications *NotificationHandler
	Chatbot       *ChatbotHandler
	Dossier       *DossierHandler

	AuthService *services.AuthService
	PermService *services.PermissionService
}

// Mount attaches every API route to the router. Global middleware (logging,
// recovery, CORS, metrics) is wired by the caller.
func Mount(r chi.Router, d Deps) {
	authed := middleware.Auth(d.AuthService, d.PermService)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleDoctor, models.RoleResponsable)
	manageSchedule := middleware.RequirePermission("doctor:manage_schedule")
	dossierWrite := middleware.RequirePermission("dossier:write")

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", d.Auth.Register)
		r.Post("/auth/login", d.Auth.Login)

		// Guest booking and public browsing need no token.
		r.Get("/doctors", d.Doctors.List)
		r.Get("/doctors/{doctorID}", d.Doctors.Get)
		r.Get("/doctors/{doctorID}/available-slots/{date}", d.Doctors.AvailableSlots)
		r.Post("/appointments", d.Appointments.Create)

		r.Post("/chatbot/message", d.Chatbot.Message)
		r.Get("/chatbot/history", d.Chatbot.History)
		r.Post("/chatbot/reset", d.Chatbot.Reset)

		r.Group(func(r chi.Router) {
			r.Use(authed)

			r.Get("/appointments/mine", d.Appointments.ListMine)
			r.Get("/appointments/{id}", d.Appointments.Get)
			r.Put("/appointments/{id}/status", d.Appointments.UpdateStatus)
			r.Put("/appointments/{id}/cancel", d.Appointments.Cancel)

			r.Get("/notifications", d.Notifications.ListMine)
			r.Put("/notifications/{id}/read", d.Notifications.MarkRead)
			r.Delete("/notifications/{id}", d.Notifications.Delete)

			r.With(staff).Post("/doctors/{doctorID}/absences", d.Doctors.DeclareAbsence)
			r.With(staff).Get("/doctors/{doctorID}/absences", d.Doctors.ListAbsences)
			r.Put("/doctors/{doctorID}/absences/{absenceID}/status", d.Doctors.ReviewAbsence)
			r.With(manageSchedule).Put("/doctors/{doctorID}/availability", d.Doctors.SetAvailability)
			r.Get("/doctors/{doctorID}/availability", d.Doctors.GetAvailability)
			r.With(manageSchedule).Delete("/doctors/{doctorID}/availability/{day}", d.Doctors.ClearAvailability)

			r.With(dossierWrite).Post("/patients/{patientID}/dossier", d.Dossier.AddNote)
			r.Get("/patients/{patientID}/dossier", d.Dossier.ListNotes)
			r.With(dossierWrite).Put("/patients/{patientID}/dossier/{noteID}", d.Dossier.UpdateNote)
			r.With(dossierWrite).Delete("/patients/{patientID}/dossier/{noteID}", d.Dossier.DeleteNote)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Post("/doctors", d.Doctors.Create)
				r.Put("/doctors/{doctorID}", d.Doctors.Update)
				r.Delete("/doctors/{doctorID}", d.Doctors.Deactivate)
			})

			// Admins pass these gates implicitly; the named permissions let
			// them delegate without handing out the admin role.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission("user:manage"))

				r.Get("/users", d.Users.List)
				r.Get("/users/{id}", d.Users.Get)
				r.Put("/users/{id}", d.Users.Update)
				r.Delete("/users/{id}", d.Users.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission("permission:manage"))

				r.Get("/permissions", d.Permissions.List)
				r.Post("/permissions", d.Permissions.Create)
				r.Delete("/permissions/{id}", d.Permissions.Delete)
				r.Post("/permissions/roles", d.Permissions.GrantToRole)
				r.Delete("/permissions/roles", d.Permissions.RevokeFromRole)
				r.Post("/users/{id}/permissions", d.Permissions.GrantToUser)
				r.Delete("/users/{id}/permissions/{grantID}", d.Permissions.RevokeFromUser)
				r.Get("/users/{id}/effective-permissions", d.Permissions.EffectivePermissions)
			})
		})
	})
}

// NewRouter builds a bare router with only the API routes, for tests.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	Mount(r, d)
	return r
}
