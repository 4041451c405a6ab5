package utils

import (
	"time"

	"github.com/google/uuid"

	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
)

// CaseHistoryStmt builds the insert for an audit record in case_histories.
// Callers run it in the same transaction as the change it records.
func CaseHistoryStmt(
	caseID, actorID string,
	action string,
	oldS, newS models.CaseStatus,
	reason string,
	at time.Time,
) database.Statement {
	return database.Stmt(
		`INSERT INTO case_histories (id, case_id, actor_id, action, old_status, new_status, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), caseID, actorID, action, string(oldS), string(newS), reason, at,
	)
}

// Now is the timestamp written to created_at/updated_at columns.
func Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
