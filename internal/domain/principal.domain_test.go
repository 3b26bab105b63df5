package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaJSONRepresentation(t *testing.T) {
	b, err := json.Marshal(Quota{Unlimited: true})
	require.NoError(t, err)
	assert.Equal(t, `"unlimited"`, string(b))

	b, err = json.Marshal(Quota{Remaining: 5})
	require.NoError(t, err)
	assert.Equal(t, `5`, string(b))

	var q Quota
	require.NoError(t, json.Unmarshal([]byte(`"unlimited"`), &q))
	assert.True(t, q.Unlimited)

	require.NoError(t, json.Unmarshal([]byte(`3`), &q))
	assert.False(t, q.Unlimited)
	assert.EqualValues(t, 3, q.Remaining)

	err = json.Unmarshal([]byte(`"five"`), &q)
	assert.Error(t, err)
}

func TestPrincipalHidesSecretsInJSON(t *testing.T) {
	p := Principal{
		ID:           "p-1",
		Email:        "a@user.test",
		PasswordHash: "$2a$10$hash",
		GoogleID:     "google-1",
		RefreshToken: "refresh-token",
	}
	b, err := json.Marshal(p)
	require.NoError(t, err)

	s := string(b)
	assert.NotContains(t, s, "hash")
	assert.NotContains(t, s, "google-1")
	assert.NotContains(t, s, "refresh-token")
}

func TestRoleSpecPlans(t *testing.T) {
	assert.True(t, ApplicantSpec.HasPlan())
	assert.True(t, EmployerSpec.HasPlan())
	assert.False(t, AdminSpec.HasPlan())
}
