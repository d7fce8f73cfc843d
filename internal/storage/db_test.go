package storage

import (
	"path/filepath"
	"testing"
	"time"

	"zakat-tracker/internal/auth"
	"zakat-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func strPtr(s string) *string { return &s }

// UserTestSuite provides a test suite for user operations
type UserTestSuite struct {
	suite.Suite
	db *DB
}

// SetupTest runs before each test
func (suite *UserTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
}

// TearDownTest runs after each test
func (suite *UserTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *UserTestSuite) newUser(email, username string) *models.User {
	hash, err := auth.HashPassword("secret")
	require.NoError(suite.T(), err)
	user, err := suite.db.CreateUser(models.NewUser{
		Email:    email,
		Username: username,
		FullName: "Test User",
	}, hash)
	require.NoError(suite.T(), err)
	return user
}

func (suite *UserTestSuite) TestCreateAndLookupUser() {
	user := suite.newUser("a@b.com", "alice")
	assert.NotEmpty(suite.T(), user.ID)
	assert.Equal(suite.T(), "a@b.com", user.Email)
	assert.Equal(suite.T(), "Test User", user.FullName)
	assert.False(suite.T(), user.CreatedAt.IsZero())

	byEmail, err := suite.db.GetUserByEmail("a@b.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, byEmail.ID)
	assert.True(suite.T(), auth.CheckPassword("secret", byEmail.PasswordHash))

	byUsername, err := suite.db.GetUserByUsername("alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, byUsername.ID)

	count, err := suite.db.UserCount()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *UserTestSuite) TestDuplicateUser() {
	suite.newUser("a@b.com", "alice")

	_, err := suite.db.CreateUser(models.NewUser{Email: "a@b.com", Username: "other", FullName: "X"}, "h")
	assert.ErrorIs(suite.T(), err, ErrDuplicateEmail)

	_, err = suite.db.CreateUser(models.NewUser{Email: "c@d.com", Username: "alice", FullName: "X"}, "h")
	assert.ErrorIs(suite.T(), err, ErrDuplicateUsername)
}

func (suite *UserTestSuite) TestUnknownUser() {
	_, err := suite.db.GetUserByEmail("missing@b.com")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

// EntryTestSuite provides a test suite for zakat entry operations
type EntryTestSuite struct {
	suite.Suite
	db    *DB
	user  *models.User
	other *models.User
}

// SetupTest runs before each test
func (suite *EntryTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	suite.user, err = db.CreateUser(models.NewUser{Email: "a@b.com", Username: "alice", FullName: "Alice"}, "h")
	require.NoError(suite.T(), err, "failed to create test user")
	suite.other, err = db.CreateUser(models.NewUser{Email: "c@d.com", Username: "carol", FullName: "Carol"}, "h")
	require.NoError(suite.T(), err, "failed to create second user")
}

// TearDownTest runs after each test
func (suite *EntryTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *EntryTestSuite) TestCreateEntryComputesZakat() {
	entry, err := suite.db.CreateEntry(suite.user.ID, models.EntryInput{
		Amount:      100,
		Category:    models.CategoryCash,
		Description: strPtr(""),
	})
	require.NoError(suite.T(), err)

	assert.NotEmpty(suite.T(), entry.ID)
	assert.Equal(suite.T(), suite.user.ID, entry.UserID)
	assert.Equal(suite.T(), 100.0, entry.Amount)
	assert.InDelta(suite.T(), 2.5, entry.ZakatAmount, 1e-9)
	assert.Equal(suite.T(), models.CategoryCash, entry.Category)
	require.NotNil(suite.T(), entry.Description)
	assert.Equal(suite.T(), "", *entry.Description)
	assert.False(suite.T(), entry.Date.IsZero())
}

func (suite *EntryTestSuite) TestCreateEntryWithoutDescription() {
	entry, err := suite.db.CreateEntry(suite.user.ID, models.EntryInput{Amount: 10, Category: models.CategoryGold})
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), entry.Description)
}

func (suite *EntryTestSuite) TestListEntriesNewestFirst() {
	base := time.Now().Add(-time.Hour)
	for i, desc := range []string{"first", "second", "third"} {
		date := base.Add(time.Duration(i) * time.Minute)
		_, err := suite.db.CreateEntry(suite.user.ID, models.EntryInput{
			Amount:      float64(10 * (i + 1)),
			Category:    models.CategoryCash,
			Description: strPtr(desc),
			Date:        &date,
		})
		require.NoError(suite.T(), err, "failed to create entry: %s", desc)
	}

	entries, err := suite.db.ListEntries(suite.user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), entries, 3)
	assert.Equal(suite.T(), "third", entries[0].DescriptionText())
	assert.Equal(suite.T(), "first", entries[2].DescriptionText())
}

func (suite *EntryTestSuite) TestEntriesAreScopedToOwner() {
	entry, err := suite.db.CreateEntry(suite.user.ID, models.EntryInput{Amount: 10, Category: models.CategoryCash})
	require.NoError(suite.T(), err)

	others, err := suite.db.ListEntries(suite.other.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), others)

	_, err = suite.db.GetEntry(suite.other.ID, entry.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	err = suite.db.DeleteEntry(suite.other.ID, entry.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.UpdateEntry(suite.other.ID, entry.ID, models.EntryUpdate{Description: strPtr("x")})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *EntryTestSuite) TestUpdateEntryPartial() {
	entry, err := suite.db.CreateEntry(suite.user.ID, models.EntryInput{
		Amount:      100,
		Category:    models.CategoryCash,
		Description: strPtr("savings"),
	})
	require.NoError(suite.T(), err)

	amount := 400.0
	updated, err := suite.db.UpdateEntry(suite.user.ID, entry.ID, models.EntryUpdate{Amount: &amount})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 400.0, updated.Amount)
	assert.InDelta(suite.T(), 10.0, updated.ZakatAmount, 1e-9)
	assert.Equal(suite.T(), "savings", updated.DescriptionText())
	assert.Equal(suite.T(), models.CategoryCash, updated.Category)

	gold := models.CategoryGold
	updated, err = suite.db.UpdateEntry(suite.user.ID, entry.ID, models.EntryUpdate{Category: &gold})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.CategoryGold, updated.Category)
	assert.InDelta(suite.T(), 10.0, updated.ZakatAmount, 1e-9)

	unchanged, err := suite.db.UpdateEntry(suite.user.ID, entry.ID, models.EntryUpdate{})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), updated, unchanged)
}

func (suite *EntryTestSuite) TestDeleteEntry() {
	entry, err := suite.db.CreateEntry(suite.user.ID, models.EntryInput{Amount: 10, Category: models.CategoryCash})
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.DeleteEntry(suite.user.ID, entry.ID))

	_, err = suite.db.GetEntry(suite.user.ID, entry.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	err = suite.db.DeleteEntry(suite.user.ID, entry.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func TestNewDBReopensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zakat.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	_, err = db.CreateUser(models.NewUser{Email: "a@b.com", Username: "alice", FullName: "Alice"}, "h")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err, "migrations should be idempotent")
	defer db.Close()

	count, err := db.UserCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// Test suite runners
func TestUserSuite(t *testing.T) {
	suite.Run(t, new(UserTestSuite))
}

func TestEntrySuite(t *testing.T) {
	suite.Run(t, new(EntryTestSuite))
}
