package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/schedpdf/core/schedule"
)

func TestCompute(t *testing.T) {
	res := &schedule.Result{
		Headers: []string{"Open", "Talk", "Close"},
		Schools: []schedule.SchoolSchedule{
			{Name: "A", Entries: []schedule.Entry{{Event: "Open", Time: "09:00"}, {Event: "Talk", Time: "10:00"}}},
			{Name: "B", Entries: []schedule.Entry{{Event: "Open", Time: "08:30"}, {Event: "Talk", Time: "11:00"}, {Event: "Close", Time: "12:15"}, {Event: "Open", Time: "09:30"}}},
			{Name: "C"},
		},
	}
	sum := Compute(res)
	assert.Equal(t, 3, sum.Schools)
	assert.Equal(t, 1, sum.EmptySchools)
	assert.Equal(t, 6, sum.Entries)
	assert.InDelta(t, 2.0, sum.MeanEntries, 1e-9)
	assert.InDelta(t, 2.0, sum.StdDevEntries, 1e-9)
	assert.InDelta(t, 2.0, sum.MedianEntries, 1e-9)
	assert.Equal(t, 0, sum.MinEntries)
	assert.Equal(t, 4, sum.MaxEntries)
	assert.Equal(t, "08:30", sum.Earliest)
	assert.Equal(t, "12:15", sum.Latest)

	require.Len(t, sum.Events, 3)
	assert.Equal(t, "Open", sum.Events[0].Event)
	assert.Equal(t, 2, sum.Events[0].Schools)
	assert.InDelta(t, 2.0/3, sum.Events[0].Share, 1e-9)
	assert.Equal(t, "Close", sum.Events[2].Event)
	assert.InDelta(t, 1.0/3, sum.Events[2].Share, 1e-9)
}

func TestCompute_SingleSchool(t *testing.T) {
	sum := Compute(&schedule.Result{
		Headers: []string{"Open"},
		Schools: []schedule.SchoolSchedule{{Name: "A", Entries: []schedule.Entry{{Event: "Open", Time: "09:00"}}}},
	})
	assert.Equal(t, 1.0, sum.MeanEntries)
	assert.Equal(t, 0.0, sum.StdDevEntries)
	assert.False(t, math.IsNaN(sum.StdDevEntries))
}

func TestCompute_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, Compute(nil))
	sum := Compute(&schedule.Result{Headers: []string{"Open"}, Schools: []schedule.SchoolSchedule{}})
	assert.Equal(t, 0, sum.Schools)
	assert.Equal(t, []EventCoverage{{Event: "Open"}}, sum.Events)
}
