package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"dzemat/internal/platform/database"
)

func TestLogger_LogAndList(t *testing.T) {
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	defer db.Close()

	l := NewLogger(db)
	ctx := context.Background()

	l.Log(ctx, "tenant_a", "usr_1", ActionMemberAdded, "added", map[string]interface{}{"workGroupId": "wg_1"})
	l.Log(ctx, "tenant_b", "usr_2", ActionMemberAdded, "other tenant", nil)
	l.Wait()

	activities, err := l.List(ctx, "tenant_a", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("expected 1 activity for tenant_a, got %d", len(activities))
	}
	if activities[0].Metadata["workGroupId"] != "wg_1" {
		t.Errorf("metadata = %v", activities[0].Metadata)
	}
}

func TestLogger_WriteFailureIsSwallowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO activities").WillReturnError(errors.New("disk full"))

	l := NewLogger(db)
	ctx, cancel := context.WithCancel(context.Background())
	l.Log(ctx, "tenant_a", "usr_1", ActionTaskCreated, "created", nil)
	cancel()
	l.Wait()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
