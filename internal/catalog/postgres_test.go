package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var partCols = []string{
	"part_number", "manufacturer_number", "name", "brand", "appliance_type", "price", "in_stock",
	"description", "install_difficulty", "install_time", "url",
}

func TestPostgresGetPart(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT part_number").
		WithArgs("PS11739035").
		WillReturnRows(pgxmock.NewRows(partCols).
			AddRow("PS11739035", "WPW10321304", "Door Shelf Bin", "Whirlpool", "refrigerator", 44.95, true, "", "", "", ""))

	store := NewPostgresWithPool(mock)
	p, err := store.GetPart(context.Background(), "ps11739035")
	require.NoError(t, err)
	assert.Equal(t, Refrigerator, p.ApplianceType)
	assert.True(t, p.InStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetPartNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT part_number").
		WithArgs("PS1").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresWithPool(mock).GetPart(context.Background(), "PS1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLookupErrorIsDistinct(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT model_number").
		WithArgs("WDT780SAEM1").
		WillReturnError(errors.New("connection reset"))

	_, err = NewPostgresWithPool(mock).GetModel(context.Background(), "WDT780SAEM1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBrandRelationship(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM brand_relationships").
		WithArgs("Whirlpool", "Maytag", "dishwasher").
		WillReturnRows(pgxmock.NewRows([]string{"parent", "subsidiary", "appliance_type", "interchangeable", "confidence"}).
			AddRow("Whirlpool", "Maytag", "dishwasher", true, 0.8))

	r, err := NewPostgresWithPool(mock).BrandRelationship(context.Background(), "Whirlpool", "Maytag", Dishwasher)
	require.NoError(t, err)
	assert.True(t, r.Interchangeable)
	assert.InDelta(t, 0.8, r.Confidence, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSearchPartsPlaceholders(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`lower\(brand\) = lower\(\$2\).*appliance_type = \$3.*LIMIT \$4`).
		WithArgs("%latch%", "Whirlpool", "dishwasher", 5).
		WillReturnRows(pgxmock.NewRows(partCols).
			AddRow("PS11701542", "WPW10348269", "Door Latch", "Whirlpool", "dishwasher", 29.87, true, "", "", "", ""))

	parts, err := NewPostgresWithPool(mock).SearchParts(context.Background(), PartFilter{
		Query: "Latch", Brand: "Whirlpool", ApplianceType: Dishwasher, Limit: 5,
	})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "PS11701542", parts[0].PartNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSearchRepairs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM repairs").
		WithArgs("%leaking%", "dishwasher", 3).
		WillReturnRows(pgxmock.NewRows([]string{"id", "appliance_type", "symptom", "title", "description", "difficulty", "part_names", "url"}).
			AddRow("dw-leaking", "dishwasher", "leaking", "Dishwasher leaking", "", "Easy", []string{"Door Gasket"}, ""))

	repairs, err := NewPostgresWithPool(mock).SearchRepairs(context.Background(), RepairFilter{
		Query: "leaking", ApplianceType: Dishwasher, Limit: 3,
	})
	require.NoError(t, err)
	require.Len(t, repairs, 1)
	assert.Equal(t, []string{"Door Gasket"}, repairs[0].PartNames)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("connection refused"))

	store := NewPostgresWithPool(mock)
	assert.NoError(t, store.Ping(context.Background()))
	assert.ErrorContains(t, store.Ping(context.Background()), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}
