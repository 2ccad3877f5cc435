package menu

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"deskgoo-pos/internal/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemColumns = []string{"id", "category_id", "category_name", "name", "price", "available"}

func TestRepository_ListCategories(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Success_NoFilter", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM categories c$`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery(`FROM categories c ORDER BY c.name ASC LIMIT \$1 OFFSET \$2`).
			WithArgs(20, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "count"}).
				AddRow(1, "Drinks", 3).
				AddRow(2, "Momo", 5))

		res, total, err := repo.ListCategories(context.Background(), "", 20, 0)

		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, res, 2)
		assert.Equal(t, "Drinks", res[0].Name)
		assert.Equal(t, 5, res[1].ItemCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_WithFilter", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM categories c WHERE c.name ILIKE \$1`).
			WithArgs("%mo%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`WHERE c.name ILIKE \$1 ORDER BY c.name ASC LIMIT \$2 OFFSET \$3`).
			WithArgs("%mo%", 10, 10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "count"}))

		res, total, err := repo.ListCategories(context.Background(), "mo", 10, 10)

		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Empty(t, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Count fails", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("db down"))

		_, _, err := repo.ListCategories(context.Background(), "", 20, 0)

		assert.ErrorIs(t, err, apperr.ErrPersistence)
	})
}

func TestRepository_ListItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	cat := int64(4)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM menu_items mi WHERE mi.category_id = \$1 AND mi.name ILIKE \$2 AND mi.available`).
		WithArgs(cat, "%tea%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`LEFT JOIN categories c ON c.id = mi.category_id WHERE (.+) ORDER BY mi.name ASC, mi.id ASC LIMIT \$3 OFFSET \$4`).
		WithArgs(cat, "%tea%", 20, 0).
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(9, cat, "Drinks", "Masala Tea", "2.50", true))

	items, total, err := repo.ListItems(context.Background(), ItemFilter{CategoryID: &cat, Search: "tea", AvailableOnly: true}, 20, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Masala Tea", items[0].Name)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("2.5")))
	require.NotNil(t, items[0].CategoryID)
	assert.Equal(t, cat, *items[0].CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Success without category", func(t *testing.T) {
		mock.ExpectQuery(`WHERE mi.id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(3, nil, "", "Thukpa", "8.00", true))

		it, err := repo.FindItem(context.Background(), 3)

		require.NoError(t, err)
		assert.Nil(t, it.CategoryID)
		assert.Equal(t, "Thukpa", it.Name)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery(`WHERE mi.id = \$1`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindItem(context.Background(), 99)

		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}
