package usage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogBounded(t *testing.T) {
	l := NewLog()
	for i := 0; i < maxRecords+50; i++ {
		l.Record("classifier", fmt.Sprintf("id-%d", i), 10*time.Millisecond, true)
	}

	recent := l.Recent(0)
	assert.Len(t, recent, maxRecords)
	// newest first, oldest 50 dropped
	assert.Equal(t, fmt.Sprintf("id-%d", maxRecords+49), recent[0].AgentID)
	assert.Equal(t, "id-50", recent[len(recent)-1].AgentID)
}

func TestReportAggregates(t *testing.T) {
	l := NewLog()
	l.Record("classifier", "c1", 100*time.Millisecond, true)
	l.Record("classifier", "c1", 300*time.Millisecond, false)
	l.Record("evaluator", "e1", 50*time.Millisecond, true)

	report := l.Report()
	assert.Len(t, report, 2)

	assert.Equal(t, "classifier", report[0].Agent)
	assert.Equal(t, 2, report[0].Calls)
	assert.Equal(t, 1, report[0].Failures)
	assert.Equal(t, 200.0, report[0].AvgLatencyMS)

	assert.Equal(t, "evaluator", report[1].Agent)
	assert.Equal(t, 0, report[1].Failures)
}

func TestRecentLimit(t *testing.T) {
	l := NewLog()
	for i := 0; i < 10; i++ {
		l.Record("summarizer", "s1", time.Millisecond, true)
	}
	assert.Len(t, l.Recent(3), 3)
	assert.Len(t, l.Recent(100), 10)
}
