// Package roster merges the terminal's enrolled users into the stored roster.
package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/device"
	"github.com/bhaskarRao-22/attendance-sync/internal/models"
	"github.com/bhaskarRao-22/attendance-sync/internal/settings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Result counts what one reconciliation changed.
type Result struct {
	Upserted    int
	Deactivated int
}

// Reconcile upserts every device user as active and deactivates stored users
// missing from the device list, so an empty list deactivates everyone.
// Designations of existing users are kept. Users are never deleted.
func Reconcile(ctx context.Context, db *gorm.DB, users []device.User) (Result, error) {
	if db == nil {
		return Result{}, fmt.Errorf("roster: database not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows := Normalize(users)
	now := time.Now().UTC()
	records := make([]models.BiometricUser, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, u := range rows {
		records = append(records, models.BiometricUser{
			BioID:       u.ID,
			BioName:     u.Name,
			Designation: settings.DefaultDesignation,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		ids = append(ids, u.ID)
	}

	var res Result
	errTx := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			if errUpsert := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "bio_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"bio_name", "is_active", "updated_at"}),
			}).CreateInBatches(&records, 200).Error; errUpsert != nil {
				return fmt.Errorf("roster: upsert users: %w", errUpsert)
			}
			res.Upserted = len(records)
		}

		// NOT IN over an empty list matches nothing in SQL, so an empty
		// roster needs the unfiltered form.
		deactivate := tx.Model(&models.BiometricUser{}).Where("is_active = ?", true)
		if len(ids) > 0 {
			deactivate = deactivate.Where("bio_id NOT IN ?", ids)
		}
		deactivate = deactivate.Updates(map[string]any{"is_active": false, "updated_at": now})
		if deactivate.Error != nil {
			return fmt.Errorf("roster: deactivate missing users: %w", deactivate.Error)
		}
		res.Deactivated = int(deactivate.RowsAffected)
		return nil
	})
	if errTx != nil {
		return Result{}, errTx
	}
	return res, nil
}

// Normalize trims ids and names, drops users without an id, names blank
// users "Unknown" and keeps the last entry for a repeated id.
func Normalize(users []device.User) []device.User {
	index := make(map[string]int, len(users))
	out := make([]device.User, 0, len(users))
	for _, u := range users {
		u.ID = strings.TrimSpace(u.ID)
		if u.ID == "" {
			continue
		}
		u.Name = strings.TrimSpace(u.Name)
		if u.Name == "" {
			u.Name = settings.UnknownName
		}
		if i, ok := index[u.ID]; ok {
			out[i] = u
			continue
		}
		index[u.ID] = len(out)
		out = append(out, u)
	}
	return out
}

// Names maps device ids to display names.
func Names(users []device.User) map[string]string {
	names := make(map[string]string, len(users))
	for _, u := range Normalize(users) {
		names[u.ID] = u.Name
	}
	return names
}
