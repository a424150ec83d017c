package dashboard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tero-backend/internal/app"
	"tero-backend/internal/cache"
	"tero-backend/internal/ledger"
	"tero-backend/internal/margin"
	"tero-backend/internal/reports"
	"tero-backend/internal/storage"
	"tero-backend/internal/testutil"
	"tero-backend/internal/variation"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, dash *cache.Dashboard) (*fiber.App, sqlmock.Sqlmock) {
	db, mock := testutil.NewMockDB(t)
	store := storage.New(db)
	svc := ledger.New(store, margin.DefaultPolicy(), variation.DefaultConfig())
	svc.Now = func() time.Time { return now }
	d := &app.Deps{Store: store, Ledger: svc, Dashboard: dash}

	a := fiber.New()
	a.Get("/dashboard", SummaryHandler(d))
	a.Get("/dashboard/price-variations", PriceVariationsHandler(d))
	a.Get("/reports/costs", CostWorkbookHandler(d))
	return a, mock
}

func expectEmptyDashboard(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM ingredients\)`).
		WillReturnRows(sqlmock.NewRows([]string{"ingredients", "recipes", "active_menu_items", "unpriced_ingredients"}).
			AddRow(12, 4, 0, 2))
	mock.ExpectQuery(`ROW_NUMBER\(\) OVER`).
		WillReturnRows(sqlmock.NewRows([]string{"ingredient_id", "name", "unit", "price", "date"}))
	mock.ExpectQuery(`FROM menu_items AS m`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expectCostBook(mock)
}

func expectCostBook(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT DISTINCT ON \(ingredient_id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"ingredient_id", "final_cost"}).AddRow(1, 10.0))
	mock.ExpectQuery(`SELECT \* FROM "recipe_line_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipe_id", "ingredient_id", "sub_recipe_id", "quantity"}).
			AddRow(1, 1, 1, nil, 3.0))
}

func TestSummary_CachesSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	a, mock := newTestApp(t, cache.NewDashboard(rdb, time.Minute))
	expectEmptyDashboard(mock)

	resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

	var first ledger.Dashboard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))
	assert.Equal(t, int64(12), first.Ingredients)
	assert.Equal(t, int64(2), first.UnpricedIngredients)

	// the second call must not touch the database
	resp, err = a.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))

	var second ledger.Dashboard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&second))
	assert.Equal(t, first.Ingredients, second.Ingredients)
}

func TestSummary_WithoutCache(t *testing.T) {
	a, mock := newTestApp(t, nil)
	expectEmptyDashboard(mock)

	resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
}

func TestPriceVariations_CustomThreshold(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.ExpectQuery(`ROW_NUMBER\(\) OVER`).
		WithArgs(false, time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), true, 0).
		WillReturnRows(sqlmock.NewRows([]string{"ingredient_id", "name", "unit", "price", "date"}).
			AddRow(1, "Harina", "Kg", 103.0, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)).
			AddRow(1, "Harina", "Kg", 100.0, time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)))

	resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/dashboard/price-variations?days=30&threshold=2", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []variation.Variation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].Percent)
}

func TestPriceVariations_InvalidWindow(t *testing.T) {
	a, _ := newTestApp(t, nil)

	for _, q := range []string{"days=-1", "days=400", "threshold=abc"} {
		resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/dashboard/price-variations?"+q, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestCostWorkbook(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.ExpectQuery(`SELECT \* FROM "recipes" ORDER BY is_sub_recipe, name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_sub_recipe"}).AddRow(1, "Ñoquis", false))
	expectCostBook(mock)
	mock.ExpectQuery(`FROM menu_items AS m`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expectCostBook(mock)

	resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/reports/costs", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "costos-20260315-120000.xlsx")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue(reports.SheetRecipes, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Ñoquis", name)
}
