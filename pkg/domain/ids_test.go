package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ipregistry/pkg/domain-errors"
)

func TestParseApplicationID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseApplicationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseApplicationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseApplicationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseApplicationID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, ApplicationID(valid), id)
		assert.Equal(t, valid.String(), id.String())
	})
}

func TestParseEntryID(t *testing.T) {
	t.Run("round-trips a valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseEntryID(valid.String())
		require.NoError(t, err)
		assert.False(t, id.IsNil())
		assert.Equal(t, valid.String(), id.String())
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseEntryID("entry-1")
		require.Error(t, err)
	})
}

func TestIDJSONRepresentation(t *testing.T) {
	id := NewApplicationID()

	raw, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(raw))

	var back ApplicationID
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, id, back)

	var invalid ApplicationID
	err = json.Unmarshal([]byte(`"not-a-uuid"`), &invalid)
	require.Error(t, err)
}
