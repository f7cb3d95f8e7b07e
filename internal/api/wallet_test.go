package api

import (
	"net/http"
	"testing"

	"coin_wallet/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletCreatedLazilyOnFirstRead(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db, testConfig())
	user := domain.User{Username: "alice", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	// No wallet row yet; the first read creates one with zero balances
	w := doJSON(t, r, http.MethodGet, "/wallet", nil, user.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	wallet := body["wallet"].(map[string]any)
	assert.EqualValues(t, 0, wallet["total_coins"])
	assert.EqualValues(t, 0, wallet["used_coins"])
	assert.EqualValues(t, 0, wallet["available_coins"])

	// A second read must reuse the same row
	w = doJSON(t, r, http.MethodGet, "/wallet", nil, user.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var count int64
	require.NoError(t, db.Model(&domain.Wallet{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestWalletAdjustIncrementThenDecrement(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db, testConfig())
	user := createTestUser(t, db, "bob", "BOB001")

	w := doJSON(t, r, http.MethodPost, "/wallet/adjust", h{"coins": 100, "type": "increment"}, user.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Coins added successfully", decodeBody(t, w)["message"])

	w = doJSON(t, r, http.MethodPost, "/wallet/adjust", h{"coins": 30, "type": "decrement"}, user.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Coins deducted successfully", decodeBody(t, w)["message"])

	wallet := loadWallet(t, db, user.ID)
	assert.EqualValues(t, 100, wallet.TotalCoins)
	assert.EqualValues(t, 30, wallet.UsedCoins)
	assert.EqualValues(t, 70, wallet.AvailableCoins())

	// Every mutation leaves a ledger row
	var ledger []domain.CoinTransaction
	require.NoError(t, db.Where("wallet_id = ?", wallet.ID).Find(&ledger).Error)
	require.Len(t, ledger, 2)
	assert.Equal(t, "adjust_increment", ledger[0].Type)
	assert.Equal(t, "adjust_decrement", ledger[1].Type)
}

func TestWalletDecrementInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db, testConfig())
	user := createTestUser(t, db, "carol", "CAR001")
	seedWallet(t, db, user.ID, 100, 30)

	// available=70, decrement 80 must fail with no mutation
	w := doJSON(t, r, http.MethodPost, "/wallet/adjust", h{"coins": 80, "type": "decrement"}, user.ID, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Insufficient balance", decodeBody(t, w)["error"])

	wallet := loadWallet(t, db, user.ID)
	assert.EqualValues(t, 100, wallet.TotalCoins)
	assert.EqualValues(t, 30, wallet.UsedCoins)
	assert.EqualValues(t, 70, wallet.AvailableCoins())
}

func TestWalletAdjustRejectsBadInput(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db, testConfig())
	user := createTestUser(t, db, "dave", "DAV001")

	cases := []h{
		{"coins": 0, "type": "increment"},
		{"coins": -5, "type": "increment"},
		{"coins": 10, "type": "bogus"},
		{"type": "increment"},
	}
	for _, body := range cases {
		w := doJSON(t, r, http.MethodPost, "/wallet/adjust", body, user.ID, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	// Nothing was mutated by any of the rejected requests
	wallet := loadWallet(t, db, user.ID)
	assert.EqualValues(t, 0, wallet.TotalCoins)
	assert.EqualValues(t, 0, wallet.UsedCoins)

	// Missing token is rejected before any handler logic
	w := doJSON(t, r, http.MethodPost, "/wallet/adjust", h{"coins": 10, "type": "increment"}, 0, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRedeemInsufficientPoints(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db, testConfig())
	user := createTestUser(t, db, "erin", "ERI001")
	seedGamePoints(t, db, user.ID, 250, 0) // available=250, 3 coins need 300

	w := doJSON(t, r, http.MethodPost, "/wallet/redeem", h{"coins": 3}, user.ID, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Insufficient game points", decodeBody(t, w)["error"])

	// No partial mutation survives the failed redemption
	profile := loadProfile(t, db, user.ID)
	assert.EqualValues(t, 0, profile.UsedGamePoints)
	wallet := loadWallet(t, db, user.ID)
	assert.EqualValues(t, 0, wallet.TotalCoins)
}

func TestRedeemSuccess(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db, testConfig())
	user := createTestUser(t, db, "frank", "FRA001")
	seedGamePoints(t, db, user.ID, 500, 100) // available=400, 3 coins need 300

	w := doJSON(t, r, http.MethodPost, "/wallet/redeem", h{"coins": 3}, user.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 3, body["coins_awarded"])
	assert.EqualValues(t, 100, body["available_game_points"])
	assert.EqualValues(t, 3, body["available_coins"])

	profile := loadProfile(t, db, user.ID)
	assert.EqualValues(t, 400, profile.UsedGamePoints)
	wallet := loadWallet(t, db, user.ID)
	assert.EqualValues(t, 3, wallet.TotalCoins)
	assert.EqualValues(t, wallet.TotalCoins-wallet.UsedCoins, wallet.AvailableCoins())

	// The mint shows up in the ledger
	var tx domain.CoinTransaction
	require.NoError(t, db.Where("wallet_id = ? AND type = ?", wallet.ID, "redeem").First(&tx).Error)
	assert.EqualValues(t, 3, tx.Amount)
}

func TestRedeemRejectsBadInput(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db, testConfig())
	user := createTestUser(t, db, "gina", "GIN001")

	for _, body := range []h{{"coins": 0}, {"coins": -2}, {}} {
		w := doJSON(t, r, http.MethodPost, "/wallet/redeem", body, user.ID, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}
