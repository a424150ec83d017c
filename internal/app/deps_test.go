package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tero-backend/internal/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamID(t *testing.T) {
	app := fiber.New()
	app.Get("/x/:id", func(c *fiber.Ctx) error {
		id, err := ParamID(c, "id")
		if err != nil {
			return err
		}
		return c.JSON(id)
	})

	for path, status := range map[string]int{"/x/12": 200, "/x/0": 400, "/x/abc": 400, "/x/-1": 400} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, path)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-07")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("07/03/2026")
	assert.Error(t, err)

	today, err := ParseDate("")
	require.NoError(t, err)
	assert.Zero(t, today.Hour())
}

type failingWriter struct{ calls int }

func (f *failingWriter) WriteMessages(context.Context, ...kafka.Message) error {
	f.calls++
	return errors.New("broker caído")
}
func (f *failingWriter) Close() error { return nil }

func TestDeps_SideEffectsNeverPanic(t *testing.T) {
	w := &failingWriter{}
	d := &Deps{Notifier: notify.New(w)}

	d.Publish(context.Background(), notify.PriceRecorded, 1, nil)
	d.Invalidate(context.Background())
	assert.Equal(t, 1, w.calls)

	empty := &Deps{}
	empty.Publish(context.Background(), notify.PriceRecorded, 1, nil)
	empty.Invalidate(context.Background())
}
