// Package audit records who did what to which record.
package audit

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/models"
)

// Causer kinds recorded on activity rows.
const (
	CauserUser  = "user"
	CauserAdmin = "admin"
)

// Recorder persists activity rows. Recording never fails the request that
// triggered it; write errors are logged and dropped.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record writes one activity row.
func (r *Recorder) Record(ctx context.Context, event, description, subjectType string, subjectID uint64, causerType string, causerID uint64, properties map[string]any) {
	if r == nil || r.db == nil {
		return
	}

	var props datatypes.JSON
	if len(properties) > 0 {
		raw, errMarshal := json.Marshal(properties)
		if errMarshal != nil {
			log.WithError(errMarshal).WithField("event", event).Warn("audit: marshal properties")
		} else {
			props = datatypes.JSON(raw)
		}
	}

	activity := models.Activity{
		Event:       event,
		Description: description,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		CauserType:  causerType,
		CauserID:    causerID,
		Properties:  props,
	}
	if errCreate := r.db.WithContext(ctx).Create(&activity).Error; errCreate != nil {
		log.WithError(errCreate).WithField("event", event).Warn("audit: record activity")
	}
}

// Recent returns the newest activity rows, capped at limit.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.Activity
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
