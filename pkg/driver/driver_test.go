package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/alicel/migsim/pkg/driver"
	"github.com/alicel/migsim/pkg/schedule"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeMigration(t *testing.T, parentDir, migID string) {
	t.Helper()

	path := filepath.Join(parentDir, migID, "metadata", "subsets", "ks", "0", "LARGE", "1", "10", "subset-0")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("a,10\n"), 0o644))
}

func tierConfigs(threads, maxWorkers int) schedule.WorkerConfig {
	tc := schedule.TierConfig{NumThreads: threads, MaxWorkers: maxWorkers}

	return schedule.WorkerConfig{Large: tc, Medium: tc, Small: tc, Universal: tc}
}

func TestDriverRunSchedulesEveryDiscoveredMigration(t *testing.T) {
	parent := t.TempDir()
	writeMigration(t, parent, "mig-a")
	writeMigration(t, parent, "mig-b")

	outputDir := t.TempDir()

	cfg := schedule.Config{Worker: tierConfigs(1, 1), Mode: schedule.ModeConcurrent}

	d := driver.New(cfg, nil, 2, nil)

	outcomes, err := d.Run(context.Background(), parent, outputDir, "run")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	for _, o := range outcomes {
		require.NoError(t, o.Err)
		assert.NotNil(t, o.Result)

		migDir := filepath.Join(outputDir, "migration_exec_results", o.MigrationID)
		_, statErr := os.Stat(filepath.Join(migDir, "run_workers.csv"))
		assert.NoError(t, statErr)
	}
}

func TestDiscoverMigrationsIgnoresNonMigrationDirs(t *testing.T) {
	parent := t.TempDir()
	writeMigration(t, parent, "mig-a")
	require.NoError(t, os.MkdirAll(filepath.Join(parent, "not-a-migration"), 0o755))

	ids, err := driver.DiscoverMigrations(parent)
	require.NoError(t, err)
	assert.Equal(t, []string{"mig-a"}, ids)
}
