package batteryid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnownID(t *testing.T) {
	m, err := Parse([]byte(`{"CB-001": {"realId": "EN-88341", "supplier": "energo"}}`))
	require.NoError(t, err)

	ref, err := m.Resolve("CB-001")
	require.NoError(t, err)
	assert.Equal(t, "EN-88341", ref.RealID)
	assert.Equal(t, "energo", ref.Supplier)
}

func TestResolveUnknownIDFails(t *testing.T) {
	m, err := Parse([]byte(`{"CB-001": {"realId": "EN-88341", "supplier": "energo"}}`))
	require.NoError(t, err)

	_, err = m.Resolve("CB-999")
	assert.True(t, errors.Is(err, ErrUnmapped))
}

func TestParseRejectsIdentityMapping(t *testing.T) {
	_, err := Parse([]byte(`{"CB-001": {"realId": "CB-001", "supplier": "energo"}}`))
	assert.Error(t, err)
}

func TestParseRejectsIncompleteEntry(t *testing.T) {
	_, err := Parse([]byte(`{"CB-001": {"realId": "", "supplier": "energo"}}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"CB-001": {"realId": "EN-1", "supplier": ""}}`))
	assert.Error(t, err)
}
