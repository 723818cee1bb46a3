// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/strike-bot/internal/dataset"
)

func AssertEqual(t testing.TB, want, got any) {
	t.Helper()
	assert.Equal(t, want, got)
}

func AssertNoError(t testing.TB, err error) {
	t.Helper()
	require.NoError(t, err)
}

func AssertError(t testing.TB, err error) {
	t.Helper()
	assert.Error(t, err)
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewRedis starts a miniredis server bound to the test lifetime.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

// Dec parses a decimal literal, panicking on bad input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SampleCSV mirrors SampleEvents in the CSV layout accepted by dataset.LoadCSV.
const SampleCSV = `event_id,player_name,stat_type,line_value,opponent
evt-1,LeBron James,points,25.5,GSW
evt-2,LeBron James,points,27.5,GSW
evt-3,LeBron James,rebounds,7.5,GSW
evt-4,LeBron James,assists,8.5,GSW
evt-5,Anthony Davis,points,24.5,GSW
evt-6,Anthony Davis,rebounds,11.5,GSW
evt-7,Stephen Curry,points,28.5,LAL
evt-8,Stephen Curry,threes,4.5,LAL
evt-9,Jayson Tatum,points,27.5,NYK
evt-10,Jalen Brunson,assists,6.5,BOS
evt-11,Luka Dončić,points,30.5,DEN
evt-12,LeBron James,points,25.5,GSW
`

// SampleEvents returns a small dataset with one duplicated LeBron line.
func SampleEvents() []dataset.Event {
	row := func(id, player, stat, line, opp string) dataset.Event {
		return dataset.Event{EventID: id, PlayerName: player, StatType: stat, LineValue: Dec(line), Opponent: opp}
	}

	return []dataset.Event{
		row("evt-1", "LeBron James", "points", "25.5", "GSW"),
		row("evt-2", "LeBron James", "points", "27.5", "GSW"),
		row("evt-3", "LeBron James", "rebounds", "7.5", "GSW"),
		row("evt-4", "LeBron James", "assists", "8.5", "GSW"),
		row("evt-5", "Anthony Davis", "points", "24.5", "GSW"),
		row("evt-6", "Anthony Davis", "rebounds", "11.5", "GSW"),
		row("evt-7", "Stephen Curry", "points", "28.5", "LAL"),
		row("evt-8", "Stephen Curry", "threes", "4.5", "LAL"),
		row("evt-9", "Jayson Tatum", "points", "27.5", "NYK"),
		row("evt-10", "Jalen Brunson", "assists", "6.5", "BOS"),
		row("evt-11", "Luka Dončić", "points", "30.5", "DEN"),
		row("evt-12", "LeBron James", "points", "25.5", "GSW"),
	}
}

func SampleDataset() *dataset.Dataset {
	return dataset.New(SampleEvents())
}
