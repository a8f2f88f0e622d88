package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkandgreet/booking-backend/internal/models"
)

func TestDraftSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewDraftRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		record := &DraftRecord{
			SessionID: uuid.New(),
			Draft: models.BookingDraft{
				FirstName:   "Jane",
				LastName:    "Doe",
				DropoffDate: "2026-09-20",
			},
			Step:       models.StepTrip,
			CapacityOK: true,
		}

		mock.ExpectExec(`INSERT INTO wizard_drafts`).
			WithArgs(
				record.SessionID, sqlmock.AnyArg(), int(models.StepTrip), sqlmock.AnyArg(),
				true, "", "", sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Save(record)
		require.NoError(t, err)
		assert.False(t, record.UpdatedAt.IsZero())

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Database Error", func(t *testing.T) {
		record := &DraftRecord{SessionID: uuid.New()}

		mock.ExpectExec(`INSERT INTO wizard_drafts`).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.Save(record)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save draft")

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestDraftGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewDraftRepository(mockDB)

	columns := []string{"draft", "step", "promo", "capacity_ok", "customer_id", "vehicle_id", "updated_at"}

	t.Run("Success", func(t *testing.T) {
		sessionID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM wizard_drafts WHERE session_id`).
			WithArgs(sessionID).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				[]byte(`{"first_name":"Jane","dropoff_date":"2026-09-20"}`),
				2,
				[]byte(`{"code":"FREEWEEK","valid":true,"discount_percent":100,"message":"ok"}`),
				true, "cust_42", "veh_7", now,
			))

		record, err := repo.Get(sessionID)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "Jane", record.Draft.FirstName)
		assert.Equal(t, "2026-09-20", record.Draft.DropoffDate)
		assert.Equal(t, models.StepTrip, record.Step)
		assert.True(t, record.Promo.Valid)
		assert.Equal(t, 100, record.Promo.DiscountPercent)
		assert.Equal(t, "cust_42", record.CustomerID)
		assert.Equal(t, "veh_7", record.VehicleID)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Not Found", func(t *testing.T) {
		sessionID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM wizard_drafts WHERE session_id`).
			WithArgs(sessionID).
			WillReturnError(sql.ErrNoRows)

		record, err := repo.Get(sessionID)
		require.NoError(t, err)
		assert.Nil(t, record)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Database Error", func(t *testing.T) {
		sessionID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM wizard_drafts WHERE session_id`).
			WithArgs(sessionID).
			WillReturnError(fmt.Errorf("database error"))

		record, err := repo.Get(sessionID)
		assert.Error(t, err)
		assert.Nil(t, record)
		assert.Contains(t, err.Error(), "failed to get draft")

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestDraftDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewDraftRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		sessionID := uuid.New()

		mock.ExpectExec(`DELETE FROM wizard_drafts WHERE session_id`).
			WithArgs(sessionID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(sessionID)
		require.NoError(t, err)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestDraftRoundTrip(t *testing.T) {
	// Save then Get through the same mock must reproduce an identical draft.
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewDraftRepository(mockDB)

	original := models.BookingDraft{
		FirstName:        "Jane",
		LastName:         "Doe",
		Email:            "jane@example.com",
		Phone:            "+447700900123",
		Registration:     "AB12 CDE",
		Make:             "Other",
		MakeOther:        "Koenigsegg",
		Model:            "Other",
		ModelOther:       "Gemera",
		Colour:           "Silver",
		DropoffDate:      "2026-09-20",
		DropoffAirline:   "Ryanair",
		DropoffFlightKey: "FR8888@14:30",
		DropoffSlotID:    "early",
		PickupDate:       "2026-09-27",
		ReturnFlightKey:  "FR8889@21:10",
		PackageID:        models.PackageQuick,
		BillingLine1:     "1 High Street",
		BillingCity:      "Leeds",
		BillingPostcode:  "LS1 1AA",
		BillingCountry:   "United Kingdom",
		TermsAccepted:    true,
	}

	record := &DraftRecord{SessionID: uuid.New(), Draft: original, Step: models.StepPayment}

	mock.ExpectExec(`INSERT INTO wizard_drafts`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(record))

	// Replay the serialized form the repository produced.
	savedDraft, err := json.Marshal(original)
	require.NoError(t, err)
	savedPromo := []byte(`{"code":"","valid":false,"discount_percent":0,"message":""}`)

	mock.ExpectQuery(`SELECT (.+) FROM wizard_drafts WHERE session_id`).
		WithArgs(record.SessionID).
		WillReturnRows(sqlmock.NewRows(
			[]string{"draft", "step", "promo", "capacity_ok", "customer_id", "vehicle_id", "updated_at"},
		).AddRow(savedDraft, 4, savedPromo, false, "", "", time.Now()))

	loaded, err := repo.Get(record.SessionID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, original, loaded.Draft)
	assert.Equal(t, models.StepPayment, loaded.Step)

	assert.NoError(t, mock.ExpectationsWereMet())
}
