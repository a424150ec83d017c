package audit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tero-backend/internal/database"
	"tero-backend/internal/models"
	"tero-backend/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	assert.Equal(t, "null", snapshot(nil))
	assert.Equal(t, `{"price":1000}`, snapshot(map[string]int{"price": 1000}))
	assert.Equal(t, "null", snapshot(make(chan int)))
}

func TestWriteLog(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	database.DB = db

	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WithArgs(sqlmock.AnyArg(), uint(2), "ana", EntityEvent, uint(9), models.AuditActionUpdate, "Evento actualizado", `{"total":"1"}`, `{"total":"2"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := WriteLog(LogOptions{
		UserID:      2,
		UserName:    "ana",
		EntityType:  EntityEvent,
		EntityID:    9,
		Action:      models.AuditActionUpdate,
		Description: "Evento actualizado",
		Before:      map[string]string{"total": "1"},
		After:       map[string]string{"total": "2"},
	})
	require.NoError(t, err)
}

func TestListAuditLogsHandler(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	database.DB = db

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "audit_logs" WHERE entity_type = \$1 AND entity_id = \$2 ORDER BY created_at DESC, id DESC LIMIT \$3`).
		WithArgs("event", uint64(9), 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "user_id", "user_name", "entity_type", "entity_id", "action", "description", "before_data", "after_data"}).
			AddRow(4, created, 2, "ana", "event", 9, "delete", "Evento eliminado", `{"client":"X"}`, "null"))

	app := fiber.New()
	app.Get("/audit", ListAuditLogsHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit?entity_type=event&entity_id=9", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "2026-03-01 10:00:00", body[0]["created_at"])
	assert.Equal(t, map[string]any{"client": "X"}, body[0]["before"])
	assert.Nil(t, body[0]["after"])
}
