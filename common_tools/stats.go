package common_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// StatsStore serves precomputed statistics from a flat JSON object on disk.
// The file is read on every lookup, so edits take effect on the next call.
type StatsStore struct {
	Path string
}

func NewStatsStore(path string) *StatsStore {
	return &StatsStore{Path: path}
}

// Lookup returns the value bound to key. A missing key is (nil, false, nil);
// an unreadable or malformed file is an error.
func (s *StatsStore) Lookup(key string) (interface{}, bool, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, false, fmt.Errorf("reading stats file %s: %w", s.Path, err)
	}

	var stats map[string]interface{}
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false, fmt.Errorf("decoding stats file %s: %w", s.Path, err)
	}

	value, ok := stats[key]
	return value, ok, nil
}

// Get_Stat is the get_stat tool. An absent key yields a nil (JSON null) result.
func (s *StatsStore) Get_Stat(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	key, _ := args["key"].(string)
	value, _, err := s.Lookup(key)
	if err != nil {
		return nil, err
	}
	return value, nil
}
