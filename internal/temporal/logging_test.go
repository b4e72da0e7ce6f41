package temporal

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTemporalAdapter_WritesKeyvals(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTemporalAdapter(zerolog.New(&buf))

	logger.Info("activity started", "OccupancyID", "occ-1", "attempt", 2)
	logger.Error("activity failed", "error", errors.New("boom"), "dangling")

	out := buf.String()
	assert.Contains(t, out, `"component":"temporal"`)
	assert.Contains(t, out, `"OccupancyID":"occ-1"`)
	assert.Contains(t, out, `"attempt":2`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"dangling":"MISSING_VALUE"`)
}

func TestJoinRequestParams_WorkflowID(t *testing.T) {
	p := JoinRequestParams{}
	p.Notice.OccupancyID = "abc"
	assert.Equal(t, "join-request-abc", p.WorkflowID())
}
