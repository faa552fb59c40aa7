package expect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/notes-e2e/internal/errs"
)

func TestChecker_PassingAssertionsYieldNil(t *testing.T) {
	t.Parallel()
	c := Contract("POST users/login")
	assert.True(t, c.Status(200, 200))
	assert.True(t, c.Message("Login successful", "Login successful"))
	c.Assert().NotEmpty("token")
	assert.False(t, c.Failed())
	assert.NoError(t, c.Err())
}

func TestChecker_CollectsEveryFailure(t *testing.T) {
	t.Parallel()
	c := Contract("POST users/login")
	assert.False(t, c.Status(200, 401))
	assert.False(t, c.Message("Login successful", "Incorrect email address or password"))

	err := c.Err()
	require.Error(t, err)
	assert.Equal(t, errs.ContractViolation, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "POST users/login")
	assert.Contains(t, err.Error(), "status")
	assert.Contains(t, err.Error(), "Incorrect email address or password")
	assert.NotContains(t, err.Error(), "\n")
}

func TestChecker_UsesGivenCode(t *testing.T) {
	t.Parallel()
	c := New(errs.UIFailure, "profile page")
	c.Assert().Equal("a", "b")
	assert.Equal(t, errs.UIFailure, errs.CodeOf(c.Err()))
}
