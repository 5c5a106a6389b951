package tutor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEligibleQuery(t *testing.T) {
	query, args, err := buildEligibleQuery(7).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, user_id, skills, is_active, created_at FROM tutors WHERE is_active = $1 AND skills @> ARRAY[$2]::bigint[] ORDER BY id ASC",
		query,
	)
	assert.Equal(t, []interface{}{true, int64(7)}, args)
}
