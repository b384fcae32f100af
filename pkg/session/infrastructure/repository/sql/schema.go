package sql

import (
	"time"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

const (
	applicationTable = "session_application"
	statementTable   = "session_statement"
)

// insertionOrder sorts rows by the database assigned sequence, i.e. in insertion order.
const insertionOrder = "seq ASC"

// ApplicationEntity is the persisted form of model.Application. Seq is assigned by the database.
type ApplicationEntity struct {
	Seq          int64              `gorm:"column:seq;->"`
	ID           string             `gorm:"column:id;primaryKey"`
	Type         string             `gorm:"column:type"`
	State        string             `gorm:"column:state"`
	AppID        string             `gorm:"column:app_id"`
	AppInfo      string             `gorm:"column:app_info"`
	SubmitParams model.SubmitParams `gorm:"column:submit_params"`
	CreatedAt    time.Time          `gorm:"column:created_at"`
	ContactedAt  *time.Time         `gorm:"column:contacted_at"`
	ArchivedAt   *time.Time         `gorm:"column:archived_at"`
}

func (ApplicationEntity) TableName() string {
	return applicationTable
}

// StatementEntity is the persisted form of model.Statement. Output holds the JSON encoded result, if any.
type StatementEntity struct {
	Seq       int64     `gorm:"column:seq;->"`
	ID        string    `gorm:"column:id;primaryKey"`
	SessionID string    `gorm:"column:session_id"`
	Code      string    `gorm:"column:code"`
	State     string    `gorm:"column:state"`
	Output    *string   `gorm:"column:output"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (StatementEntity) TableName() string {
	return statementTable
}
