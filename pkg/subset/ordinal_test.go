package subset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicel/migsim/pkg/subset"
)

func TestParseWorkerIDAcceptsPlainInteger(t *testing.T) {
	id, err := subset.ParseWorkerID("42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestParseWorkerIDAcceptsSubsetPrefixForm(t *testing.T) {
	id, err := subset.ParseWorkerID("subset-12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)
}

func TestParseWorkerIDRejectsUnparseableID(t *testing.T) {
	_, err := subset.ParseWorkerID("not-a-number")
	assert.Error(t, err)
}
