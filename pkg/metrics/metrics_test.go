package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSync(t *testing.T) {
	before := testutil.ToFloat64(syncSessionsTotal.WithLabelValues("full", "processed"))
	RecordSync("full", "processed", 10*time.Millisecond)
	RecordSync("full", "processed", 20*time.Millisecond)
	assert.Equal(t, before+2, testutil.ToFloat64(syncSessionsTotal.WithLabelValues("full", "processed")))
}

func TestRecordPackagesApplied(t *testing.T) {
	before := testutil.ToFloat64(packagesAppliedTotal.WithLabelValues("diff"))
	RecordPackagesApplied("diff", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(packagesAppliedTotal.WithLabelValues("diff")))
}

func TestRecordVerificationFailure(t *testing.T) {
	before := testutil.ToFloat64(verificationFailuresTotal)
	RecordVerificationFailure()
	assert.Equal(t, before+1, testutil.ToFloat64(verificationFailuresTotal))
}

func TestWriteTextfile(t *testing.T) {
	RecordSync("diff", "unchanged", time.Millisecond)
	path := filepath.Join(t.TempDir(), "idxsync.prom")

	require.NoError(t, WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "idxsync_sync_sessions_total")
	assert.Contains(t, string(data), "idxsync_sync_duration_seconds")
}
