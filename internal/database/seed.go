package database

import (
	"fmt"

	"github.com/clinova/medbook/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var defaultPermissions = []models.Permission{
	{Name: "appointment:read", Description: "View appointments", Category: "appointment"},
	{Name: "appointment:manage", Description: "Confirm, complete and cancel appointments", Category: "appointment"},
	{Name: "doctor:manage_schedule", Description: "Edit doctor weekly availability", Category: "doctor"},
	{Name: "doctor:approve_absences", Description: "Approve or reject doctor absence requests", Category: "doctor"},
	{Name: "dossier:read", Description: "Read patient dossier notes", Category: "dossier"},
	{Name: "dossier:write", Description: "Add and edit patient dossier notes", Category: "dossier"},
	{Name: "user:manage", Description: "Administer user accounts", Category: "admin"},
	{Name: "permission:manage", Description: "Administer permissions and grants", Category: "admin"},
}

var defaultRoleGrants = map[models.Role][]string{
	models.RoleDoctor:      {"appointment:read", "appointment:manage", "doctor:manage_schedule", "dossier:read", "dossier:write"},
	models.RoleResponsable: {"appointment:read", "appointment:manage", "doctor:approve_absences", "dossier:read"},
}

var defaultTemplates = []models.NotificationTemplate{
	{
		Name:     "appointment_created",
		Subject:  "Rendez-vous enregistré",
		Content:  "Votre rendez-vous du {{date}} à {{time}} a été enregistré. Motif : {{reason}}.",
		Type:     "appointment",
		Category: "booking",
	},
	{
		Name:     "appointment_status_changed",
		Subject:  "Rendez-vous mis à jour",
		Content:  "Votre rendez-vous du {{date}} à {{time}} est maintenant « {{status}} ».",
		Type:     "appointment",
		Category: "booking",
	},
	{
		Name:            "appointment_canceled",
		Subject:         "Rendez-vous annulé",
		Content:         "Votre rendez-vous du {{date}} à {{time}} a été annulé.",
		Type:            "appointment",
		Category:        "booking",
		DefaultPriority: models.PriorityHigh,
	},
	{
		Name:            "absence_patient_impact",
		Subject:         "Indisponibilité de votre médecin",
		Content:         "Votre médecin sera absent du {{start_date}} au {{end_date}}. Merci de reprogrammer votre rendez-vous.",
		Type:            "doctor_absence",
		Category:        "schedule",
		DefaultPriority: models.PriorityHigh,
	},
	{
		Name:     "absence_reviewed",
		Subject:  "Demande d'absence traitée",
		Content:  "Votre demande d'absence du {{start_date}} au {{end_date}} a été {{status}}.",
		Type:     "doctor_absence",
		Category: "schedule",
	},
}

// Seed inserts the built-in permissions, role grants and notification
// templates. Rows already present are left untouched, so it is safe to run
// on every startup.
func Seed() error {
	return SeedDB(DB)
}

// SeedDB seeds an explicit connection. Tests use this with their own DB.
func SeedDB(db *gorm.DB) error {
	for i := range defaultPermissions {
		p := defaultPermissions[i]
		p.IsActive = true
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&p).Error
		if err != nil {
			return fmt.Errorf("failed to seed permission %s: %w", p.Name, err)
		}
	}

	for role, names := range defaultRoleGrants {
		for _, name := range names {
			var perm models.Permission
			if err := db.Where("name = ?", name).First(&perm).Error; err != nil {
				return fmt.Errorf("failed to load permission %s: %w", name, err)
			}
			grant := models.RolePermission{Role: role, PermissionID: perm.ID}
			err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "role"}, {Name: "permission_id"}},
				DoNothing: true,
			}).Create(&grant).Error
			if err != nil {
				return fmt.Errorf("failed to seed role grant %s/%s: %w", role, name, err)
			}
		}
	}

	for i := range defaultTemplates {
		t := defaultTemplates[i]
		t.IsActive = true
		if t.DefaultPriority == "" {
			t.DefaultPriority = models.PriorityNormal
		}
		if t.DefaultChannel == "" {
			t.DefaultChannel = models.ChannelInApp
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&t).Error
		if err != nil {
			return fmt.Errorf("failed to seed template %s: %w", t.Name, err)
		}
	}

	log.Info().Msg("Default permissions and templates seeded")
	return nil
}
