package promtest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/influxdata/pepclean/kit/prom/promtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestFindMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	files := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "files_total",
		Help: "Files by status.",
	}, []string{"status"})
	reg.MustRegister(files)
	files.WithLabelValues("fixed").Add(3)

	mfs := promtest.MustGather(t, reg)
	require.NotNil(t, promtest.FindMetric(mfs, "files_total", map[string]string{"status": "fixed"}))
	require.Nil(t, promtest.FindMetric(mfs, "files_total", map[string]string{"status": "failed"}))
	require.Nil(t, promtest.FindMetric(mfs, "files_total", nil))
	require.Nil(t, promtest.FindMetric(mfs, "bytes_total", nil))

	require.Equal(t, 3.0, promtest.MustCounterValue(t, mfs, "files_total", map[string]string{"status": "fixed"}))
}

func TestFromTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	removed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bytes_removed_total",
		Help: "Bytes removed.",
	})
	reg.MustRegister(removed)
	removed.Add(42)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, prometheus.WriteToTextfile(path, reg))

	mfs, err := promtest.FromTextfile(path)
	require.NoError(t, err)
	require.Equal(t, 42.0, promtest.MustCounterValue(t, mfs, "bytes_removed_total", nil))

	_, err = promtest.FromTextfile(filepath.Join(t.TempDir(), "missing.prom"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
