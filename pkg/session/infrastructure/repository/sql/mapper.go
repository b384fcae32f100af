package sql

import (
	"fmt"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

func fromDomainApplication(app *model.Application) *ApplicationEntity {
	if app == nil {
		return nil
	}
	return &ApplicationEntity{
		ID:           app.ID,
		Type:         string(app.Type),
		State:        string(app.State),
		AppID:        app.AppID,
		AppInfo:      app.AppInfo,
		SubmitParams: app.SubmitParams.Clone(),
		CreatedAt:    app.CreatedAt,
		ContactedAt:  app.ContactedAt,
		ArchivedAt:   app.ArchivedAt,
	}
}

func toDomainApplication(entity *ApplicationEntity) *model.Application {
	if entity == nil {
		return nil
	}
	return &model.Application{
		ID:           entity.ID,
		Type:         model.ApplicationType(entity.Type),
		State:        model.ApplicationState(entity.State),
		AppID:        entity.AppID,
		AppInfo:      entity.AppInfo,
		SubmitParams: entity.SubmitParams,
		CreatedAt:    entity.CreatedAt,
		ContactedAt:  entity.ContactedAt,
		ArchivedAt:   entity.ArchivedAt,
	}
}

func fromDomainStatement(sessionID string, stmt *model.Statement) (*StatementEntity, error) {
	entity := &StatementEntity{
		ID:        stmt.ID,
		SessionID: sessionID,
		Code:      stmt.Code,
		State:     string(stmt.State),
		CreatedAt: stmt.CreatedAt,
	}
	if stmt.Output != nil {
		v, err := stmt.Output.Value()
		if err != nil {
			return nil, fmt.Errorf("failed to encode output of statement %s: %w", stmt.ID, err)
		}
		s := v.(string)
		entity.Output = &s
	}
	return entity, nil
}

func toDomainStatement(entity *StatementEntity) (*model.Statement, error) {
	stmt := &model.Statement{
		ID:        entity.ID,
		Code:      entity.Code,
		State:     model.StatementState(entity.State),
		CreatedAt: entity.CreatedAt,
	}
	if entity.Output != nil && *entity.Output != "" {
		var out model.StatementOutput
		if err := out.Scan(*entity.Output); err != nil {
			return nil, fmt.Errorf("failed to decode output of statement %s: %w", entity.ID, err)
		}
		stmt.Output = &out
	}
	return stmt, nil
}
