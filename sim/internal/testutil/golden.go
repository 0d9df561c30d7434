// Package testutil provides shared test infrastructure for the station
// simulator: the golden scenario dataset and assertion helpers.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/golden_scenarios.json.
type GoldenDataset struct {
	Scenarios []GoldenScenario `json:"scenarios"`
}

// GoldenScenario is a hand-computed station run with fixed service times.
type GoldenScenario struct {
	Name         string            `json:"name"`
	Mode         string            `json:"mode"`
	NumPrio      int               `json:"num_prio"`
	ServiceTimes []float64         `json:"service_times"`
	Arrivals     []GoldenArrival   `json:"arrivals"`
	Departures   []GoldenDeparture `json:"departures"` // in departure order
	Preemptions  int               `json:"preemptions"`
	EndTime      int64             `json:"end_time"`
}

// GoldenArrival is one job reaching the station.
type GoldenArrival struct {
	ID    string `json:"id"`
	Class int    `json:"class"`
	Tick  int64  `json:"tick"`
}

// GoldenDeparture is the expected completion of one job.
type GoldenDeparture struct {
	ID           string `json:"id"`
	Tick         int64  `json:"tick"`
	ResponseTime int64  `json:"response_time"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden_scenarios.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
