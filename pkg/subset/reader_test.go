package subset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicel/migsim/pkg/subset"
)

func writeSubsetFile(t *testing.T, root string, segments []string, body string) {
	t.Helper()

	parts := append([]string{root, "metadata", "subsets"}, segments...)
	path := filepath.Join(parts...)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestReaderReadTieredLayout(t *testing.T) {
	root := t.TempDir()
	migDir := filepath.Join(root, "mig-42")
	require.NoError(t, os.MkdirAll(migDir, 0o755))

	writeSubsetFile(t, migDir, []string{"keyspace1", "0", "LARGE", "2", "2048", "subset-0"}, "a,1024\nb,1024\n")
	writeSubsetFile(t, migDir, []string{"keyspace1", "1", "SMALL", "1", "10", "subset-1"}, "")

	r := subset.NewReader(nil)

	subsets, warnings, err := r.Read(migDir)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, subsets, 2)

	assert.Equal(t, subset.TierLarge, subsets[0].Tier)
	assert.Equal(t, "mig-42", subsets[0].MigrationID)
	assert.Len(t, subsets[0].Items, 2)

	assert.Equal(t, subset.TierSmall, subsets[1].Tier)
	assert.Empty(t, subsets[1].Items)
	assert.Equal(t, []string{"SST0"}, []string{subsets[1].WorkItems()[0].Key})
	assert.Equal(t, int64(10), subsets[1].WorkItems()[0].Size)
}

func TestReaderReadSimpleLayout(t *testing.T) {
	root := t.TempDir()
	migDir := filepath.Join(root, "mig-1")

	writeSubsetFile(t, migDir, []string{"ks", "0", "1", "512", "subset-0"}, "only 512\n")

	subsets, _, err := subset.NewReader(nil).Read(migDir)
	require.NoError(t, err)
	require.Len(t, subsets, 1)
	assert.Equal(t, subset.TierUniversal, subsets[0].Tier)
}

func TestReaderDropsFileWithMalformedLineButKeepsOthers(t *testing.T) {
	root := t.TempDir()
	migDir := filepath.Join(root, "mig-1")

	writeSubsetFile(t, migDir, []string{"ks", "0", "LARGE", "1", "1", "subset-0"}, "not,a,valid,line,at,all\n")
	writeSubsetFile(t, migDir, []string{"ks", "1", "SMALL", "1", "10", "subset-1"}, "ok,10\n")

	subsets, warnings, err := subset.NewReader(nil).Read(migDir)
	require.NoError(t, err)
	require.Len(t, subsets, 1)
	assert.Equal(t, "1", subsets[0].SubsetID)
	assert.Len(t, warnings, 1)
}

func TestReaderReturnsErrorWhenAllFilesMalformed(t *testing.T) {
	root := t.TempDir()
	migDir := filepath.Join(root, "mig-1")

	writeSubsetFile(t, migDir, []string{"ks", "0", "LARGE", "1", "1", "subset-0"}, "garbage line\n")

	_, _, err := subset.NewReader(nil).Read(migDir)
	require.ErrorIs(t, err, subset.ErrNoValidSubsets)
}

func TestReaderMissingSubsetsDir(t *testing.T) {
	migDir := t.TempDir()

	_, _, err := subset.NewReader(nil).Read(migDir)
	require.ErrorIs(t, err, subset.ErrMissingSubsetsDir)
}

func TestReaderMissingInputDir(t *testing.T) {
	_, _, err := subset.NewReader(nil).Read(filepath.Join(t.TempDir(), "does-not-exist"))
	require.ErrorIs(t, err, subset.ErrInputNotFound)
}

func TestReaderCanonicalOrdering(t *testing.T) {
	root := t.TempDir()
	migDir := filepath.Join(root, "mig-1")

	writeSubsetFile(t, migDir, []string{"ks", "5", "SMALL", "1", "1", "subset-5"}, "a,1\n")
	writeSubsetFile(t, migDir, []string{"ks", "2", "LARGE", "1", "1", "subset-2"}, "a,1\n")
	writeSubsetFile(t, migDir, []string{"ks", "1", "LARGE", "1", "1", "subset-1"}, "a,1\n")
	writeSubsetFile(t, migDir, []string{"ks", "0", "MEDIUM", "1", "1", "subset-0"}, "a,1\n")

	subsets, _, err := subset.NewReader(nil).Read(migDir)
	require.NoError(t, err)
	require.Len(t, subsets, 4)

	ids := make([]string, len(subsets))
	for i, s := range subsets {
		ids[i] = s.Tier.String() + "/" + s.SubsetID
	}

	assert.Equal(t, []string{"LARGE/1", "LARGE/2", "MEDIUM/0", "SMALL/5"}, ids)
}
