package rwlog

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldLogStatement(t *testing.T) {
	assert := assert.New(t)

	disabled := NewStmtLogger(-1)
	assert.False(disabled.shouldLogStatement(time.Hour))

	s := NewStmtLogger(10 * time.Millisecond)
	assert.False(s.shouldLogStatement(5 * time.Millisecond))
	assert.False(s.shouldLogStatement(10 * time.Millisecond))
	assert.True(s.shouldLogStatement(11 * time.Millisecond))
}

func TestReportStatementAfterReload(t *testing.T) {
	assert := assert.New(t)

	oldZero, oldS := Zero, SLogger
	t.Cleanup(func() { Zero, SLogger = oldZero, oldS })

	var buf bytes.Buffer
	l := NewZeroLogger("", "info", false).Output(&buf)
	Zero = &l

	SLogger.ReportStatement("ds0", "SELECT 1", time.Hour)
	assert.Empty(buf.String())

	ReloadSLogger(10 * time.Millisecond)
	assert.Equal(10*time.Millisecond, SLogger.MinDuration())

	SLogger.ReportStatement("ds0", "SELECT 1", time.Millisecond)
	assert.Empty(buf.String())

	SLogger.ReportStatement("ds0", "SELECT 1", 20*time.Millisecond)
	assert.Contains(buf.String(), `"data_source":"ds0"`)
	assert.Contains(buf.String(), `"stmt":"SELECT 1"`)
}
