package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordToolCall(t *testing.T) {
	before := testutil.ToFloat64(toolCalls.WithLabelValues("add_file", "success"))
	RecordToolCall("add_file", "success", 3*time.Millisecond)
	RecordToolCall("add_file", "success", time.Millisecond)
	assert.Equal(t, before+2, testutil.ToFloat64(toolCalls.WithLabelValues("add_file", "success")))
}

func TestRecordWrite(t *testing.T) {
	ok := testutil.ToFloat64(projectWrites.WithLabelValues("ok"))
	failed := testutil.ToFloat64(projectWrites.WithLabelValues("failed"))
	RecordWrite(nil)
	RecordWrite(errors.New("disk full"))
	assert.Equal(t, ok+1, testutil.ToFloat64(projectWrites.WithLabelValues("ok")))
	assert.Equal(t, failed+1, testutil.ToFloat64(projectWrites.WithLabelValues("failed")))
}

func TestHandlerExposesCounters(t *testing.T) {
	RecordExternalEdit()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "xcodeproj_watcher_external_edits_total")
}
