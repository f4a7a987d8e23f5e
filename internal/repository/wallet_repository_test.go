package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayyhq/rayy-backend/internal/model"
)

func walletRow(userID uint64, balance int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "user_id", "credits_balance", "last_grant_at", "created_at", "updated_at"}).
		AddRow(1, userID, balance, nil, now, now)
}

// A subscription grant must move the balance and stamp last_grant_at in
// the same statement, inside the same transaction as its ledger row.
func TestWalletGrant_StampsLastGrantAt(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	r := NewWalletRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM wallets WHERE user_id = \?`).
		WithArgs(uint64(7)).WillReturnRows(walletRow(7, 100))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE wallets SET credits_balance = credits_balance \+ \?, last_grant_at = \?\s+WHERE user_id = \?`).
		WithArgs(200, sqlmock.AnyArg(), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO credit_ledger`).
		WithArgs(sqlmock.AnyArg(), uint64(7), 200, string(model.LedgerPurchase), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	desc := "starter subscription"
	err = r.Grant(context.Background(), 7, 200, model.LedgerPurchase, &desc)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletGrant_LedgerFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	r := NewWalletRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM wallets WHERE user_id = \?`).
		WithArgs(uint64(7)).WillReturnRows(walletRow(7, 100))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE wallets SET credits_balance = credits_balance \+ \?, last_grant_at = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO credit_ledger`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	desc := "starter subscription"
	err = r.Grant(context.Background(), 7, 200, model.LedgerPurchase, &desc)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
