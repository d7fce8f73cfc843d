package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"zakat-tracker/internal/apiserver"
	"zakat-tracker/internal/auth"
	"zakat-tracker/internal/models"
	"zakat-tracker/internal/session"
	"zakat-tracker/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// CLITestSuite runs commands against a real API on an in-memory database.
type CLITestSuite struct {
	suite.Suite
	db      *storage.DB
	api     *httptest.Server
	session string
	stderr  string
}

func (suite *CLITestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err)
	suite.db = db
	suite.api = httptest.NewServer(apiserver.New(db, auth.NewTokenIssuer("test-secret", time.Hour), nil).Routes())
	suite.session = filepath.Join(suite.T().TempDir(), "session.db")
}

func (suite *CLITestSuite) TearDownTest() {
	suite.api.Close()
	suite.db.Close()
}

// zakat runs one command with the given stdin and returns stdout.
func (suite *CLITestSuite) zakat(stdin string, args ...string) (string, error) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	full := append([]string{"-api", suite.api.URL, "-session", suite.session}, args...)
	err := run(context.Background(), full, strings.NewReader(stdin), stdout, stderr)
	suite.stderr = stderr.String()
	return stdout.String(), err
}

func (suite *CLITestSuite) signIn() {
	out, err := suite.zakat("", "register", "-email", "a@b.com", "-user", "alice", "-name", "Alice Doe", "-password", "x")
	require.NoError(suite.T(), err)
	require.Contains(suite.T(), out, "Registration successful! Please login.")

	out, err = suite.zakat("", "login", "-email", "a@b.com", "-password", "x")
	require.NoError(suite.T(), err)
	require.Contains(suite.T(), out, "Logged in as a@b.com")
}

func (suite *CLITestSuite) entryID() string {
	user, err := suite.db.GetUserByEmail("a@b.com")
	require.NoError(suite.T(), err)
	entries, err := suite.db.ListEntries(user.ID)
	require.NoError(suite.T(), err)
	require.NotEmpty(suite.T(), entries)
	return entries[0].ID
}

func (suite *CLITestSuite) TestLoginPersistsSession() {
	suite.signIn()

	out, err := suite.zakat("", "me")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Alice Doe (alice) <a@b.com>\n", out)
}

func (suite *CLITestSuite) TestPasswordPrompt() {
	out, err := suite.zakat("secret\n", "register", "-email", "p@b.com", "-user", "pat", "-name", "Pat")
	require.NoError(suite.T(), err)
	assert.Contains(suite.T(), out, "Password: ")

	_, err = suite.zakat("secret\n", "login", "-email", "p@b.com")
	require.NoError(suite.T(), err)
}

func (suite *CLITestSuite) TestLoginFailure() {
	_, err := suite.zakat("", "login", "-email", "a@b.com", "-password", "nope")
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), "Incorrect email or password", err.Error())
}

func (suite *CLITestSuite) TestRegisterMissingFields() {
	_, err := suite.zakat("", "register", "-email", "a@b.com", "-password", "x")
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "missing required fields")

	n, err := suite.db.UserCount()
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), n)
}

func (suite *CLITestSuite) TestRegisterFieldErrorsAreSorted() {
	for i := 0; i < 5; i++ {
		_, err := suite.zakat("", "register", "-password", "x")
		require.Error(suite.T(), err)
		assert.Equal(suite.T(), "email is required\nfull_name is required\nusername is required\n", suite.stderr)
	}
}

func (suite *CLITestSuite) TestAddAndList() {
	suite.signIn()

	out, err := suite.zakat("", "add", "-amount", "100", "-category", "Cash")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Added Cash $100.00, zakat $2.50\n", out)

	out, err = suite.zakat("", "list")
	require.NoError(suite.T(), err)
	assert.Contains(suite.T(), out, "$100.00")
	assert.Contains(suite.T(), out, "$2.50")
	assert.Contains(suite.T(), out, "Total: $100.00  Zakat due: $2.50")
}

func (suite *CLITestSuite) TestAddReportsCreatedEntry() {
	suite.signIn()
	user, err := suite.db.GetUserByEmail("a@b.com")
	require.NoError(suite.T(), err)
	future := time.Now().AddDate(1, 0, 0)
	_, err = suite.db.CreateEntry(user.ID, models.EntryInput{Amount: 999, Category: models.CategoryGold, Date: &future})
	require.NoError(suite.T(), err)

	out, err := suite.zakat("", "add", "-amount", "40", "-category", "Cash")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Added Cash $40.00, zakat $1.00\n", out)
}

func (suite *CLITestSuite) TestAddRejectsBadAmount() {
	suite.signIn()

	_, err := suite.zakat("", "add", "-amount", "-5")
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), "amount must be zero or greater", err.Error())

	_, err = suite.zakat("", "add", "-amount", "5", "-category", "Crypto")
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), "category must be one of the listed values", err.Error())
}

func (suite *CLITestSuite) TestDeleteDeclined() {
	suite.signIn()
	_, err := suite.zakat("", "add", "-amount", "50")
	require.NoError(suite.T(), err)
	id := suite.entryID()

	out, err := suite.zakat("n\n", "delete", id)
	require.NoError(suite.T(), err)
	assert.Contains(suite.T(), out, "Are you sure you want to delete this entry? [y/N]")
	assert.Contains(suite.T(), out, "Cancelled")
	assert.Equal(suite.T(), id, suite.entryID())
}

func (suite *CLITestSuite) TestDeleteConfirmed() {
	suite.signIn()
	_, err := suite.zakat("", "add", "-amount", "50")
	require.NoError(suite.T(), err)
	id := suite.entryID()

	out, err := suite.zakat("y\n", "delete", id)
	require.NoError(suite.T(), err)
	assert.Contains(suite.T(), out, "Deleted")

	out, err = suite.zakat("", "list")
	require.NoError(suite.T(), err)
	assert.Contains(suite.T(), out, "No entries yet.")
}

func (suite *CLITestSuite) TestDeleteYesSkipsPrompt() {
	suite.signIn()
	_, err := suite.zakat("", "add", "-amount", "50")
	require.NoError(suite.T(), err)

	out, err := suite.zakat("", "delete", "-yes", suite.entryID())
	require.NoError(suite.T(), err)
	assert.NotContains(suite.T(), out, "[y/N]")
	assert.Contains(suite.T(), out, "Deleted")
}

func (suite *CLITestSuite) TestDeleteMissingEntry() {
	suite.signIn()

	_, err := suite.zakat("", "delete", "-yes", "00000000-0000-0000-0000-000000000000")
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "Failed to delete entry.")
}

func (suite *CLITestSuite) TestStats() {
	suite.signIn()
	_, err := suite.zakat("", "add", "-amount", "300", "-category", "Gold")
	require.NoError(suite.T(), err)
	_, err = suite.zakat("", "add", "-amount", "100", "-category", "Cash")
	require.NoError(suite.T(), err)

	out, err := suite.zakat("", "stats")
	require.NoError(suite.T(), err)
	assert.Contains(suite.T(), out, "Total assets:    $400.00")
	assert.Contains(suite.T(), out, "Total zakat due: $10.00")
	assert.Contains(suite.T(), out, "Assets by category")
	assert.Contains(suite.T(), out, "75.00%")
	assert.Contains(suite.T(), out, "Zakat by category")
}

func (suite *CLITestSuite) TestLogoutDropsSession() {
	suite.signIn()

	out, err := suite.zakat("", "logout")
	require.NoError(suite.T(), err)
	assert.Contains(suite.T(), out, "Logged out")

	_, err = suite.zakat("", "list")
	assert.ErrorIs(suite.T(), err, errSessionExpired)
}

func (suite *CLITestSuite) TestExpiredTokenIsCleared() {
	suite.signIn()
	forged, err := auth.NewTokenIssuer("other-secret", time.Hour).Issue("a@b.com")
	require.NoError(suite.T(), err)
	store, err := session.OpenSQLiteStore(suite.session)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), store.SetToken(forged))
	require.NoError(suite.T(), store.Close())

	_, err = suite.zakat("", "list")
	assert.ErrorIs(suite.T(), err, errSessionExpired)

	_, err = suite.zakat("", "stats")
	assert.ErrorIs(suite.T(), err, errSessionExpired, "token was cleared, no request made")
}

func (suite *CLITestSuite) TestUnknownCommand() {
	out, err := suite.zakat("", "frobnicate")
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), out, "Usage:")
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func TestBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("█", barWidth), bar(100))
	assert.Equal(t, strings.Repeat("·", barWidth), bar(0))
	assert.Equal(t, strings.Repeat("█", barWidth), bar(250))
}
