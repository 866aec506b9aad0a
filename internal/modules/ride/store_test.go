package ride

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridewave/internal/modules/pricing"
	"ridewave/internal/types"
)

func TestStore_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	store, customerID := setupTestStore(t)

	r := &Ride{
		ID:         types.ID(fmt.Sprintf("ride_%d", time.Now().UnixNano())),
		CustomerID: customerID,
		Pickup:     Place{Address: "pickup", Point: types.Point{Lat: 25.033, Lng: 121.565}},
		Drop:       Place{Address: "drop", Point: types.Point{Lat: 25.0478, Lng: 121.5318}},
		Vehicle:    pricing.TierCabEconomy,
		DistanceKm: 3.7,
		Fare:       types.Money{Amount: 1120, Currency: "USD"},
		Status:     StatusSearching,
		OTP:        "4321",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.Create(ctx, r))

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.CustomerID, got.CustomerID)
	assert.Equal(t, r.Pickup, got.Pickup)
	assert.Equal(t, r.Fare, got.Fare)
	assert.Nil(t, got.CaptainID)
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, store.Delete(ctx, r.ID))
	_, err = store.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, r.ID), ErrNotFound)
}

func setupTestStore(t *testing.T) (*Store, types.ID) {
	t.Helper()

	dsn := os.Getenv("RIDEWAVE_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("RIDEWAVE_TEST_DB_DSN not set; skipping DB-backed store tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, applyMigration(ctx, db))

	customerID := types.ID(fmt.Sprintf("cust_%d", time.Now().UnixNano()))
	_, err = db.Exec(ctx, `INSERT INTO users (id, phone, role) VALUES ($1, $2, 'customer')`,
		string(customerID), "+"+string(customerID))
	require.NoError(t, err)

	return NewStore(db), customerID
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "..", "..", "..")
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(string(content), ";") {
		if strings.TrimSpace(stripSQLComments(stmt)) == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func stripSQLComments(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
