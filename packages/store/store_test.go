package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-qa/tessera/packages/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUserProject(t *testing.T, s *Store, username, style string) (*models.User, *models.Project) {
	t.Helper()
	user, err := s.CreateUser(username, "hash")
	require.NoError(t, err)
	project, err := s.CreateProject(user.ID, username+"-project", style)
	require.NoError(t, err)
	return user, project
}

func TestProjectOwnership(t *testing.T) {
	s := newTestStore(t)
	owner, project := seedUserProject(t, s, "alice", models.TestTypeAPI)
	other, err := s.CreateUser("bob", "hash")
	require.NoError(t, err)

	got, err := s.ProjectOwnedBy(project.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)

	// Someone else's project resolves the same way as a missing one.
	_, err = s.ProjectOwnedBy(project.ID, other.ID)
	assert.Equal(t, ErrNotFound, err)
	_, err = s.ProjectOwnedBy(9999, owner.ID)
	assert.Equal(t, ErrNotFound, err)
}

func TestAPICaseRoundTrip(t *testing.T) {
	s := newTestStore(t)
	_, project := seedUserProject(t, s, "alice", models.TestTypeAPI)

	created, err := s.CreateAPICase(&models.APICase{
		ProjectID:    project.ID,
		CaseName:     "get health",
		Method:       "GET",
		URL:          "http://example.com/health",
		Headers:      models.JSONMap{"X-Token": "abc"},
		ExpectedData: models.JSONMap{"status": "ok"},
	})
	require.NoError(t, err)

	got, err := s.APICaseByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "get health", got.CaseName)
	assert.Equal(t, "abc", got.Headers["X-Token"])
	assert.Equal(t, "ok", got.ExpectedData["status"])
	// Unset maps come back as empty maps, not nil.
	assert.NotNil(t, got.Params)
	assert.Empty(t, got.Params)
}

func TestAPICasesByIDsPreservesRequestOrder(t *testing.T) {
	s := newTestStore(t)
	_, project := seedUserProject(t, s, "alice", models.TestTypeAPI)

	var ids []int64
	for _, name := range []string{"one", "two", "three"} {
		c, err := s.CreateAPICase(&models.APICase{
			ProjectID: project.ID, CaseName: name, Method: "GET", URL: "http://x",
		})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	cases, err := s.APICasesByIDs(project.ID, []int64{ids[2], ids[0]})
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "three", cases[0].CaseName)
	assert.Equal(t, "one", cases[1].CaseName)

	// Ids outside the project are skipped.
	_, otherProject := seedUserProject(t, s, "bob", models.TestTypeAPI)
	cases, err = s.APICasesByIDs(otherProject.ID, ids)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestBusinessFlowCaseCheck(t *testing.T) {
	s := newTestStore(t)
	_, project := seedUserProject(t, s, "alice", models.TestTypeAPI)
	apiCase, err := s.CreateAPICase(&models.APICase{
		ProjectID: project.ID, CaseName: "c", Method: "GET", URL: "http://x",
	})
	require.NoError(t, err)

	flow, err := s.CreateBusinessFlow(&models.BusinessFlow{
		ProjectID: project.ID,
		FlowName:  "checkout",
		TestType:  models.TestTypeAPI,
		CaseIDs:   models.IDList{apiCase.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.IDList{apiCase.ID}, flow.CaseIDs)

	// A ui-typed flow cannot reference an api case.
	_, err = s.CreateBusinessFlow(&models.BusinessFlow{
		ProjectID: project.ID,
		FlowName:  "bad",
		TestType:  models.TestTypeUI,
		CaseIDs:   models.IDList{apiCase.ID},
	})
	assert.Equal(t, ErrCaseMismatch, err)

	// Cross-project references are rejected too.
	_, otherProject := seedUserProject(t, s, "bob", models.TestTypeAPI)
	_, err = s.CreateBusinessFlow(&models.BusinessFlow{
		ProjectID: otherProject.ID,
		FlowName:  "bad",
		TestType:  models.TestTypeAPI,
		CaseIDs:   models.IDList{apiCase.ID},
	})
	assert.Equal(t, ErrCaseMismatch, err)
}
