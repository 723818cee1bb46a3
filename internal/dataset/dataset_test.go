package dataset_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/strike-bot/internal/dataset"
	"github.com/Proton-105/strike-bot/internal/testutil"
)

func TestLoadCSV(t *testing.T) {
	ds, err := dataset.LoadCSV(strings.NewReader(testutil.SampleCSV))
	require.NoError(t, err)
	assert.Equal(t, len(testutil.SampleEvents()), ds.Len())
	assert.Equal(t, testutil.SampleDataset().Events(), ds.Events())
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing column", "event_id,player_name,stat_type,line_value\n1,a,b,1\n"},
		{"bad line", "event_id,player_name,stat_type,line_value,opponent\n1,a,points,abc,x\n"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := dataset.LoadCSV(strings.NewReader(tc.in))
			assert.Error(t, err)
		})
	}
}

func TestLoadCSV_ColumnOrderAndExtras(t *testing.T) {
	in := "opponent,line_value,extra,stat_type,player_name,event_id\nGSW,25.5,x,points,LeBron James,e1\n"
	ds, err := dataset.LoadCSV(strings.NewReader(in))
	require.NoError(t, err)

	id, ok := ds.EventID("LeBron James", "POINTS", testutil.Dec("25.5"))
	assert.True(t, ok)
	assert.Equal(t, "e1", id)
}

func TestQueries(t *testing.T) {
	ds := testutil.SampleDataset()

	assert.Equal(t, []string{"LeBron James", "Anthony Davis", "Stephen Curry", "Jayson Tatum", "Jalen Brunson", "Luka Dončić"}, ds.PlayerNames())

	p, ok := ds.CanonicalPlayer("  lebron JAMES ")
	assert.True(t, ok)
	assert.Equal(t, "LeBron James", p)

	assert.Equal(t, []string{"points", "rebounds", "assists"}, ds.StatTypes("LeBron James"))

	s, ok := ds.CanonicalStat("LeBron James", "Rebounds")
	assert.True(t, ok)
	assert.Equal(t, "rebounds", s)

	_, ok = ds.CanonicalStat("Anthony Davis", "assists")
	assert.False(t, ok)

	lines := ds.LineValues("LeBron James", "points")
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Equal(testutil.Dec("25.5")))
	assert.True(t, lines[1].Equal(testutil.Dec("27.5")))
}

func TestEventID_FirstMatchWins(t *testing.T) {
	ds := testutil.SampleDataset()

	id, ok := ds.EventID("LeBron James", "Points", testutil.Dec("25.50"))
	assert.True(t, ok)
	assert.Equal(t, "evt-1", id)

	_, ok = ds.EventID("LeBron James", "points", testutil.Dec("26"))
	assert.False(t, ok)
	assert.False(t, ds.HasLine("lebron james", "points", testutil.Dec("25.5")))
}

func TestClosestLine(t *testing.T) {
	ds := dataset.New([]dataset.Event{
		{PlayerName: "A", StatType: "points", LineValue: testutil.Dec("20.5")},
		{PlayerName: "A", StatType: "points", LineValue: testutil.Dec("22.5")},
		{PlayerName: "A", StatType: "points", LineValue: testutil.Dec("30")},
	})

	tests := []struct {
		in   string
		want string
	}{
		{"21.5", "20.5"},
		{"22", "22.5"},
		{"100", "30"},
		{"-3", "20.5"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ds.ClosestLine("A", "points", testutil.Dec(tc.in))
			require.True(t, ok)
			assert.True(t, got.Equal(testutil.Dec(tc.want)), "got %s", got)
		})
	}

	_, ok := ds.ClosestLine("B", "points", decimal.Zero)
	assert.False(t, ok)
}

// Every dataset line is accepted by the lookups built from it.
func TestLookupsAreConsistent(t *testing.T) {
	ds := testutil.SampleDataset()

	for _, player := range ds.PlayerNames() {
		for _, stat := range ds.StatTypes(player) {
			canon, ok := ds.CanonicalStat(player, stat)
			require.True(t, ok)
			assert.Equal(t, stat, canon)

			for _, line := range ds.LineValues(player, stat) {
				assert.True(t, ds.HasLine(player, stat, line))
				closest, ok := ds.ClosestLine(player, stat, line)
				require.True(t, ok)
				assert.True(t, closest.Equal(line))
			}
		}
	}
}

func TestSearch(t *testing.T) {
	ds := testutil.SampleDataset()

	res := ds.Search("lebron", 0)
	assert.Equal(t, dataset.CategoryPlayer, res.Category)
	assert.Len(t, res.Rows, 5)

	res = ds.Search("gsw", 0)
	assert.Equal(t, dataset.CategoryOpponent, res.Category)
	assert.Len(t, res.Rows, 7)

	res = ds.Search("GSW", 3)
	assert.Len(t, res.Rows, 3)

	res = ds.Search("thre", 0)
	assert.Equal(t, dataset.CategoryStat, res.Category)
	assert.Len(t, res.Rows, 1)

	res = ds.Search("hockey", 0)
	assert.Empty(t, res.Category)
	assert.Empty(t, res.Rows)
}

func TestBrowseHelpers(t *testing.T) {
	ds := testutil.SampleDataset()

	assert.Equal(t, []string{"BOS", "DEN", "GSW", "LAL", "NYK"}, ds.Opponents())
	assert.Equal(t, []string{"assists", "points", "rebounds", "threes"}, ds.AllStatTypes())
	assert.Equal(t, []string{"Anthony Davis", "LeBron James"}, ds.PopularPlayers(2))
	assert.Equal(t, []string{"points"}, ds.PopularStats(1))
	assert.Len(t, ds.ByStat("POINTS"), 7)
	assert.Len(t, ds.ByOpponent("lal"), 2)
	assert.Len(t, ds.ByPlayers([]string{"jayson tatum", "Jalen Brunson"}), 2)
}
