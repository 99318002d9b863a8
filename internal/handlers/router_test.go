package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clinova/medbook/internal/cache"
	"github.com/clinova/medbook/internal/database"
	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/repository"
	"github.com/clinova/medbook/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db     *gorm.DB
	router http.Handler
	auth   *services.AuthService
}

func setupRouterTest(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	database.DB = db
	if err := database.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cacheImpl := cache.NewMemoryCache()
	userRepo := repository.NewUserRepository()
	notificationService := services.NewNotificationService(repository.NewNotificationRepository())
	authService := services.NewAuthService(userRepo, "test-secret", time.Hour)
	permService := services.NewPermissionService(repository.NewPermissionRepository(), cacheImpl)
	doctorService := services.NewDoctorService(repository.NewDoctorRepository(), userRepo)
	scheduleService := services.NewScheduleService(
		repository.NewScheduleRepository(),
		repository.NewAppointmentRepository(),
		repository.NewDoctorRepository(),
		notificationService,
	)
	appointmentService := services.NewAppointmentService(
		repository.NewAppointmentRepository(),
		repository.NewDoctorRepository(),
		userRepo,
		notificationService,
	)

	router := NewRouter(Deps{
		Auth:          NewAuthHandler(authService),
		Users:         NewUserHandler(userRepo),
		Permissions:   NewPermissionHandler(permService, userRepo),
		Doctors:       NewDoctorHandler(doctorService, scheduleService),
		Appointments:  NewAppointmentHandler(appointmentService),
		Notifications: NewNotificationHandler(notificationService),
		Chatbot:       NewChatbotHandler(services.NewChatbotService(cacheImpl)),
		Dossier:       NewDossierHandler(services.NewDossierService(repository.NewDossierRepository(), userRepo)),
		AuthService:   authService,
		PermService:   permService,
	})
	return &testEnv{db: db, router: router, auth: authService}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) tokenFor(t *testing.T, email string, role models.Role) (*models.User, string) {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "hash", Role: role, IsActive: true}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := e.auth.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	env := setupRouterTest(t)

	_, adminToken := env.tokenFor(t, "admin@example.com", models.RoleAdmin)
	docUser, docToken := env.tokenFor(t, "doc@example.com", models.RoleDoctor)

	// Admin creates the doctor profile.
	w := env.do(t, http.MethodPost, "/api/v1/doctors", adminToken, models.DoctorRequest{
		UserID: docUser.ID, AcceptingNewPatients: true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create doctor: %d %s", w.Code, w.Body.String())
	}
	var doctor models.Doctor
	decodeBody(t, w, &doctor)

	// The doctor opens a Monday morning window.
	w = env.do(t, http.MethodPut, "/api/v1/doctors/"+doctor.ID.String()+"/availability", docToken,
		models.AvailabilityRequest{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00"})
	if w.Code != http.StatusOK {
		t.Fatalf("set availability: %d %s", w.Code, w.Body.String())
	}

	// 2024-06-03 is a Monday: two free slots, no token needed.
	w = env.do(t, http.MethodGet, "/api/v1/doctors/"+doctor.ID.String()+"/available-slots/2024-06-03", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("available slots: %d %s", w.Code, w.Body.String())
	}
	var slots []string
	decodeBody(t, w, &slots)
	if len(slots) != 2 || slots[0] != "09:00" || slots[1] != "09:30" {
		t.Fatalf("slots = %v, want [09:00 09:30]", slots)
	}

	// A guest books 09:30 without any token.
	w = env.do(t, http.MethodPost, "/api/v1/appointments", "", models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "2024-06-03", Time: "09:30", Reason: "consultation",
		PatientName: "Jean Martin", PatientEmail: "jean@example.com", PatientPhone: "+33612345678",
		IsGuestBooking: true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("guest booking: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Appointment models.Appointment `json:"appointment"`
	}
	decodeBody(t, w, &created)
	if created.Appointment.Status != models.StatusPending {
		t.Fatalf("new booking must be pending, got %s", created.Appointment.Status)
	}
	apptID := created.Appointment.ID.String()

	// The booked slot disappears from the listing.
	w = env.do(t, http.MethodGet, "/api/v1/doctors/"+doctor.ID.String()+"/available-slots/2024-06-03", "", nil)
	decodeBody(t, w, &slots)
	if len(slots) != 1 || slots[0] != "09:00" {
		t.Fatalf("slots after booking = %v, want [09:00]", slots)
	}

	// A second booking on the same slot conflicts.
	w = env.do(t, http.MethodPost, "/api/v1/appointments", "", models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "2024-06-03", Time: "09:30", Reason: "autre",
		PatientName: "Luc Petit", PatientEmail: "luc@example.com", PatientPhone: "+33698765432",
		IsGuestBooking: true,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on slot conflict, got %d %s", w.Code, w.Body.String())
	}

	// The doctor confirms, then completes.
	for _, status := range []models.AppointmentStatus{models.StatusConfirmed, models.StatusCompleted} {
		w = env.do(t, http.MethodPut, "/api/v1/appointments/"+apptID+"/status", docToken,
			models.StatusUpdateRequest{Status: status})
		if w.Code != http.StatusOK {
			t.Fatalf("transition to %s: %d %s", status, w.Code, w.Body.String())
		}
	}

	// Completed is terminal: cancellation is rejected.
	w = env.do(t, http.MethodPut, "/api/v1/appointments/"+apptID+"/cancel", docToken,
		models.CancelRequest{Reason: "trop tard"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 canceling a completed booking, got %d %s", w.Code, w.Body.String())
	}

	// Re-requesting completed is an idempotent success.
	w = env.do(t, http.MethodPut, "/api/v1/appointments/"+apptID+"/status", docToken,
		models.StatusUpdateRequest{Status: models.StatusCompleted})
	if w.Code != http.StatusOK {
		t.Fatalf("idempotent completed: %d %s", w.Code, w.Body.String())
	}
}

func TestAuthRegisterAndLoginOverHTTP(t *testing.T) {
	env := setupRouterTest(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{
		Email: "marie@example.com", Password: "s3cret-pass", FirstName: "Marie",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Email: "marie@example.com", Password: "s3cret-pass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var resp models.LoginResponse
	decodeBody(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	// The token opens the authenticated surface.
	w = env.do(t, http.MethodGet, "/api/v1/appointments/mine", resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list mine: %d %s", w.Code, w.Body.String())
	}

	// Bad credentials are rejected.
	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Email: "marie@example.com", Password: "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRoleAndPermissionGates(t *testing.T) {
	env := setupRouterTest(t)

	_, patientToken := env.tokenFor(t, "patient@example.com", models.RolePatient)
	_, respToken := env.tokenFor(t, "resp@example.com", models.RoleResponsable)
	docUser, _ := env.tokenFor(t, "doc@example.com", models.RoleDoctor)
	_, adminToken := env.tokenFor(t, "admin@example.com", models.RoleAdmin)

	// Only admin may create doctor profiles.
	req := models.DoctorRequest{UserID: docUser.ID, AcceptingNewPatients: true}
	if w := env.do(t, http.MethodPost, "/api/v1/doctors", patientToken, req); w.Code != http.StatusForbidden {
		t.Fatalf("patient creating a doctor: %d", w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/v1/doctors", adminToken, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("admin creating a doctor: %d %s", w.Code, w.Body.String())
	}
	var doctor models.Doctor
	decodeBody(t, w, &doctor)

	// Patients cannot declare absences; the responsable role can.
	absence := models.AbsenceRequest{StartDate: "2024-03-10", EndDate: "2024-03-15"}
	if w := env.do(t, http.MethodPost, "/api/v1/doctors/"+doctor.ID.String()+"/absences", patientToken, absence); w.Code != http.StatusForbidden {
		t.Fatalf("patient declaring absence: %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/v1/doctors/"+doctor.ID.String()+"/absences", respToken, absence)
	if w.Code != http.StatusCreated {
		t.Fatalf("responsable declaring absence: %d %s", w.Code, w.Body.String())
	}
	var declared struct {
		Absence models.DoctorAbsence `json:"absence"`
	}
	decodeBody(t, w, &declared)

	// The seeded responsable role holds doctor:approve_absences.
	review := models.AbsenceStatusRequest{Status: models.AbsenceApproved}
	path := "/api/v1/doctors/" + doctor.ID.String() + "/absences/" + declared.Absence.ID.String() + "/status"
	if w := env.do(t, http.MethodPut, path, patientToken, review); w.Code != http.StatusForbidden {
		t.Fatalf("patient approving absence: %d", w.Code)
	}
	if w := env.do(t, http.MethodPut, path, respToken, review); w.Code != http.StatusOK {
		t.Fatalf("responsable approving absence: %d %s", w.Code, w.Body.String())
	}

	// Requests without a token never reach the authenticated surface.
	if w := env.do(t, http.MethodGet, "/api/v1/appointments/mine", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestAppointmentAccessControlOverHTTP(t *testing.T) {
	env := setupRouterTest(t)

	_, adminToken := env.tokenFor(t, "admin@example.com", models.RoleAdmin)
	docUser, _ := env.tokenFor(t, "doc@example.com", models.RoleDoctor)
	owner, ownerToken := env.tokenFor(t, "owner@example.com", models.RolePatient)
	_, strangerToken := env.tokenFor(t, "stranger@example.com", models.RolePatient)
	_, respToken := env.tokenFor(t, "resp@example.com", models.RoleResponsable)

	w := env.do(t, http.MethodPost, "/api/v1/doctors", adminToken, models.DoctorRequest{
		UserID: docUser.ID, AcceptingNewPatients: true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create doctor: %d %s", w.Code, w.Body.String())
	}
	var doctor models.Doctor
	decodeBody(t, w, &doctor)

	w = env.do(t, http.MethodPost, "/api/v1/appointments", "", models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "2024-06-03", Time: "09:00", Reason: "suivi", UserID: &owner.ID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("booking: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Appointment models.Appointment `json:"appointment"`
	}
	decodeBody(t, w, &created)
	apptID := created.Appointment.ID.String()

	// An unrelated patient may not read, transition, or cancel the booking.
	if w := env.do(t, http.MethodGet, "/api/v1/appointments/"+apptID, strangerToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("stranger reading: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPut, "/api/v1/appointments/"+apptID+"/status", strangerToken,
		models.StatusUpdateRequest{Status: models.StatusConfirmed}); w.Code != http.StatusForbidden {
		t.Fatalf("stranger confirming: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPut, "/api/v1/appointments/"+apptID+"/cancel", strangerToken,
		models.CancelRequest{Reason: "sabotage"}); w.Code != http.StatusForbidden {
		t.Fatalf("stranger canceling: %d %s", w.Code, w.Body.String())
	}

	// The booking is untouched afterwards.
	w = env.do(t, http.MethodGet, "/api/v1/appointments/"+apptID, ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner reading: %d %s", w.Code, w.Body.String())
	}
	var appt models.Appointment
	decodeBody(t, w, &appt)
	if appt.Status != models.StatusPending || appt.CancelReason != "" {
		t.Fatalf("booking mutated by denied requests: %s %q", appt.Status, appt.CancelReason)
	}

	// The responsable role holds appointment:manage and may confirm.
	w = env.do(t, http.MethodPut, "/api/v1/appointments/"+apptID+"/status", respToken,
		models.StatusUpdateRequest{Status: models.StatusConfirmed})
	if w.Code != http.StatusOK {
		t.Fatalf("responsable confirming: %d %s", w.Code, w.Body.String())
	}

	// The booking user cancels their own appointment.
	w = env.do(t, http.MethodPut, "/api/v1/appointments/"+apptID+"/cancel", ownerToken,
		models.CancelRequest{Reason: "empêchement"})
	if w.Code != http.StatusOK {
		t.Fatalf("owner canceling: %d %s", w.Code, w.Body.String())
	}
}

func TestScheduleWritesRequireProfileOwnership(t *testing.T) {
	env := setupRouterTest(t)

	_, adminToken := env.tokenFor(t, "admin@example.com", models.RoleAdmin)
	docAUser, docAToken := env.tokenFor(t, "doc-a@example.com", models.RoleDoctor)
	_, docBToken := env.tokenFor(t, "doc-b@example.com", models.RoleDoctor)
	_, patientToken := env.tokenFor(t, "patient@example.com", models.RolePatient)

	w := env.do(t, http.MethodPost, "/api/v1/doctors", adminToken, models.DoctorRequest{
		UserID: docAUser.ID, AcceptingNewPatients: true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create doctor: %d %s", w.Code, w.Body.String())
	}
	var doctorA models.Doctor
	decodeBody(t, w, &doctorA)
	window := models.AvailabilityRequest{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "12:00"}
	availPath := "/api/v1/doctors/" + doctorA.ID.String() + "/availability"

	// The owning doctor manages their own schedule.
	if w := env.do(t, http.MethodPut, availPath, docAToken, window); w.Code != http.StatusOK {
		t.Fatalf("owner setting availability: %d %s", w.Code, w.Body.String())
	}

	// Another doctor holds the same role grant but not this profile.
	if w := env.do(t, http.MethodPut, availPath, docBToken, window); w.Code != http.StatusForbidden {
		t.Fatalf("foreign doctor setting availability: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodDelete, availPath+"/monday", docBToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign doctor clearing availability: %d %s", w.Code, w.Body.String())
	}

	// Patients never pass the schedule permission gate.
	if w := env.do(t, http.MethodPut, availPath, patientToken, window); w.Code != http.StatusForbidden {
		t.Fatalf("patient setting availability: %d %s", w.Code, w.Body.String())
	}

	if w := env.do(t, http.MethodDelete, availPath+"/monday", adminToken, nil); w.Code != http.StatusNoContent {
		t.Fatalf("admin clearing availability: %d %s", w.Code, w.Body.String())
	}
}

func TestDossierAccessOverHTTP(t *testing.T) {
	env := setupRouterTest(t)

	patient, patientToken := env.tokenFor(t, "patient@example.com", models.RolePatient)
	_, strangerToken := env.tokenFor(t, "stranger@example.com", models.RolePatient)
	_, docToken := env.tokenFor(t, "doc@example.com", models.RoleDoctor)
	_, respToken := env.tokenFor(t, "resp@example.com", models.RoleResponsable)

	path := "/api/v1/patients/" + patient.ID.String() + "/dossier"
	note := models.DossierNoteRequest{Title: "Suivi", Content: "RAS"}

	// Writing needs dossier:write: doctors hold it, responsables and
	// patients do not.
	if w := env.do(t, http.MethodPost, path, docToken, note); w.Code != http.StatusCreated {
		t.Fatalf("doctor adding note: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, path, respToken, note); w.Code != http.StatusForbidden {
		t.Fatalf("responsable adding note: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, path, patientToken, note); w.Code != http.StatusForbidden {
		t.Fatalf("patient adding note: %d %s", w.Code, w.Body.String())
	}

	// Reading needs dossier:read or being the patient.
	if w := env.do(t, http.MethodGet, path, patientToken, nil); w.Code != http.StatusOK {
		t.Fatalf("patient reading own dossier: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodGet, path, strangerToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("stranger reading dossier: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodGet, path, respToken, nil); w.Code != http.StatusOK {
		t.Fatalf("responsable reading dossier: %d %s", w.Code, w.Body.String())
	}
}

func TestUserAdministrationRequiresPermission(t *testing.T) {
	env := setupRouterTest(t)

	_, adminToken := env.tokenFor(t, "admin@example.com", models.RoleAdmin)
	resp, respToken := env.tokenFor(t, "resp@example.com", models.RoleResponsable)

	if w := env.do(t, http.MethodGet, "/api/v1/users", respToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("user listing without user:manage: %d", w.Code)
	}

	// Admin delegates user administration through a user grant.
	w := env.do(t, http.MethodPost, "/api/v1/users/"+resp.ID.String()+"/permissions", adminToken,
		models.GrantRequest{PermissionName: "user:manage"})
	if w.Code != http.StatusCreated {
		t.Fatalf("granting user:manage: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodGet, "/api/v1/users", respToken, nil); w.Code != http.StatusOK {
		t.Fatalf("user listing after grant: %d %s", w.Code, w.Body.String())
	}

	// The permission surface stays closed without permission:manage.
	if w := env.do(t, http.MethodGet, "/api/v1/permissions", respToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("permission listing without permission:manage: %d", w.Code)
	}
}

func TestChatbotOverHTTP(t *testing.T) {
	env := setupRouterTest(t)

	w := env.do(t, http.MethodPost, "/api/v1/chatbot/message", "", map[string]string{
		"session_id": "s1", "message": "Je veux prendre un rendez-vous",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("chatbot message: %d %s", w.Code, w.Body.String())
	}
	var reply services.ChatReply
	decodeBody(t, w, &reply)
	if reply.Topic != "rendez-vous" {
		t.Fatalf("expected rendez-vous topic, got %s", reply.Topic)
	}

	w = env.do(t, http.MethodGet, "/api/v1/chatbot/history?session_id=s1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: %d", w.Code)
	}
	var history []services.ChatMessage
	decodeBody(t, w, &history)
	if len(history) != 2 {
		t.Fatalf("expected one exchange in history, got %d entries", len(history))
	}

	if w := env.do(t, http.MethodPost, "/api/v1/chatbot/reset", "", map[string]string{"session_id": "s1"}); w.Code != http.StatusNoContent {
		t.Fatalf("reset: %d", w.Code)
	}
}
