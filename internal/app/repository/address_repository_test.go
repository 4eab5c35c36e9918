package repository

import (
	"testing"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAddressTest(t *testing.T) (*gorm.DB, AddressRepository, *model.User) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	user := &model.User{Email: "addr@example.com", PasswordHash: "hash", Name: "Asha", Role: model.RoleUser}
	require.NoError(t, testDB.Create(user).Error)

	return testDB, NewAddressRepository(testDB), user
}

func newAddress(userID uint, name string, isDefault bool) *model.Address {
	return &model.Address{
		UserID:    userID,
		Name:      name,
		Phone:     "+91 98765 43210",
		Address:   "12 MG Road",
		City:      "Bengaluru",
		State:     "Karnataka",
		ZipCode:   "560001",
		IsDefault: isDefault,
	}
}

func defaults(t *testing.T, repo AddressRepository, userID uint) []uint {
	addresses, err := repo.FindByUserID(userID)
	require.NoError(t, err)
	var ids []uint
	for _, a := range addresses {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestAddressRepository_CreateAndList(t *testing.T) {
	_, repo, user := setupAddressTest(t)

	home := newAddress(user.ID, "Home", true)
	work := newAddress(user.ID, "Work", false)
	require.NoError(t, repo.Create(home))
	require.NoError(t, repo.Create(work))

	addresses, err := repo.FindByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.Equal(t, home.ID, addresses[0].ID, "default address is listed first")
	assert.Equal(t, "India", addresses[0].Country)

	count, err := repo.CountByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAddressRepository_SetDefault(t *testing.T) {
	testDB, repo, user := setupAddressTest(t)

	home := newAddress(user.ID, "Home", true)
	work := newAddress(user.ID, "Work", false)
	require.NoError(t, repo.Create(home))
	require.NoError(t, repo.Create(work))

	other := &model.User{Email: "other@example.com", PasswordHash: "hash", Role: model.RoleUser}
	require.NoError(t, testDB.Create(other).Error)
	theirs := newAddress(other.ID, "Theirs", true)
	require.NoError(t, repo.Create(theirs))

	require.NoError(t, repo.SetDefault(user.ID, work.ID))
	assert.Equal(t, []uint{work.ID}, defaults(t, repo, user.ID))
	assert.Equal(t, []uint{theirs.ID}, defaults(t, repo, other.ID), "other users are untouched")

	require.NoError(t, repo.SetDefault(user.ID, work.ID), "setting the current default again is fine")
	assert.Equal(t, []uint{work.ID}, defaults(t, repo, user.ID))
}

func TestAddressRepository_SetDefault_ForeignAddress(t *testing.T) {
	testDB, repo, user := setupAddressTest(t)

	home := newAddress(user.ID, "Home", true)
	require.NoError(t, repo.Create(home))

	other := &model.User{Email: "other@example.com", PasswordHash: "hash", Role: model.RoleUser}
	require.NoError(t, testDB.Create(other).Error)
	theirs := newAddress(other.ID, "Theirs", true)
	require.NoError(t, repo.Create(theirs))

	err := repo.SetDefault(user.ID, theirs.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, []uint{home.ID}, defaults(t, repo, user.ID), "a rejected call changes nothing")
}

func TestAddressRepository_Delete(t *testing.T) {
	_, repo, user := setupAddressTest(t)

	home := newAddress(user.ID, "Home", true)
	require.NoError(t, repo.Create(home))
	require.NoError(t, repo.Delete(home.ID))

	_, err := repo.FindByID(home.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.SetDefault(user.ID, home.ID), gorm.ErrRecordNotFound)
}
