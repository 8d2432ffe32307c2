package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"placement-engine/models"
)

// ErrSampleNotFound is returned when no sample file exists for a player side
var ErrSampleNotFound = errors.New("sample file not found")

// Sample lists the batter sides available for one player
type Sample struct {
	Player string              `json:"player"`
	Hands  []models.Handedness `json:"hands"`
}

// DiscoverSamples scans dir for files named <Player>_L.csv or <Player>_R.csv
func DiscoverSamples(dir string) ([]Sample, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*_[LR].csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	found := make(map[string]map[models.Handedness]bool)
	for _, f := range files {
		player, hand, ok := splitSampleName(filepath.Base(f))
		if !ok {
			continue
		}
		if found[player] == nil {
			found[player] = make(map[models.Handedness]bool)
		}
		found[player][hand] = true
	}

	samples := make([]Sample, 0, len(found))
	for player, hands := range found {
		s := Sample{Player: player}
		for _, h := range []models.Handedness{models.HandLeft, models.HandRight} {
			if hands[h] {
				s.Hands = append(s.Hands, h)
			}
		}
		samples = append(samples, s)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Player < samples[j].Player })
	return samples, nil
}

// LoadSample parses the sample file for one player side
func LoadSample(dir, player string, hand models.Handedness, bounds models.Bounds) ([]models.BattedBall, error) {
	if player == "" || strings.ContainsAny(player, `/\`) {
		return nil, fmt.Errorf("invalid player name %q: %w", player, ErrSampleNotFound)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", player, hand))
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s %s: %w", player, hand, ErrSampleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open sample file: %w", err)
	}
	defer f.Close()

	balls, err := ParseCSV(f, bounds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	for i := range balls {
		if balls[i].Handedness == "" {
			balls[i].Handedness = hand
		}
	}
	return balls, nil
}

func splitSampleName(base string) (string, models.Handedness, bool) {
	stem := strings.TrimSuffix(base, ".csv")
	if len(stem) < 3 || stem[len(stem)-2] != '_' {
		return "", "", false
	}
	return stem[:len(stem)-2], models.Handedness(stem[len(stem)-1:]), true
}
