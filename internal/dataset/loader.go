package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

var requiredColumns = []string{"event_id", "player_name", "stat_type", "line_value", "opponent"}

// LoadFile reads a CSV dataset from path.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return LoadCSV(f)
}

// LoadCSV parses a header-addressed CSV. Extra columns are ignored.
func LoadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset: empty csv")
		}
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("dataset: missing column %q", col)
		}
	}

	var events []Event
	for row := 2; ; row++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: %w", row, err)
		}

		get := func(col string) string {
			i := index[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		line, err := decimal.NewFromString(get("line_value"))
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: line_value: %w", row, err)
		}

		player := get("player_name")
		if player == "" {
			continue
		}

		events = append(events, Event{
			EventID:    get("event_id"),
			PlayerName: player,
			StatType:   get("stat_type"),
			LineValue:  line,
			Opponent:   get("opponent"),
		})
	}

	return New(events), nil
}
