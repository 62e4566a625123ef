package align

import (
	"math"
	"math/rand"
	"testing"
)

func TestSolveIdentityFastPath(t *testing.T) {
	costs := [][]float64{
		{0.01, 0.9, 0.9},
		{0.9, 0.02, 0.9},
		{0.9, 0.9, 0.01},
	}
	result := Solve(costs, 0.6, 0.9)
	for i, col := range result.RowToCol {
		if col != i {
			t.Fatalf("row %d assigned to %d, want identity", i, col)
		}
	}
	if math.Abs(result.Cost-0.04) > 1e-9 {
		t.Fatalf("cost = %f, want 0.04", result.Cost)
	}
}

func TestSolveReordered(t *testing.T) {
	// Tracks 0 and 1 are swapped relative to the candidate listing.
	costs := [][]float64{
		{0.8, 0.05, 0.8},
		{0.05, 0.8, 0.8},
		{0.8, 0.8, 0.05},
	}
	result := Solve(costs, 0.6, 0.9)
	want := []int{1, 0, 2}
	for i, col := range result.RowToCol {
		if col != want[i] {
			t.Fatalf("RowToCol = %v, want %v", result.RowToCol, want)
		}
	}
}

func TestSolveExtraRows(t *testing.T) {
	// Four local tracks against two candidate tracks: two must be extra.
	costs := [][]float64{
		{0.01, 0.9},
		{0.9, 0.01},
		{0.9, 0.9},
		{0.9, 0.9},
	}
	result := Solve(costs, 0.6, 0.9)
	if result.RowToCol[0] != 0 || result.RowToCol[1] != 1 {
		t.Fatalf("RowToCol = %v", result.RowToCol)
	}
	if result.RowToCol[2] != -1 || result.RowToCol[3] != -1 {
		t.Fatalf("rows 2 and 3 should be unassigned, got %v", result.RowToCol)
	}
	want := 0.01 + 0.01 + 0.6 + 0.6
	if math.Abs(result.Cost-want) > 1e-9 {
		t.Fatalf("cost = %f, want %f", result.Cost, want)
	}
}

func TestSolveMissingCols(t *testing.T) {
	costs := [][]float64{
		{0.02, 0.9, 0.9},
	}
	result := Solve(costs, 0.6, 0.3)
	if result.RowToCol[0] != 0 {
		t.Fatalf("RowToCol = %v", result.RowToCol)
	}
	missing := result.UnassignedCols(3)
	if len(missing) != 2 || missing[0] != 1 || missing[1] != 2 {
		t.Fatalf("UnassignedCols = %v", missing)
	}
	if math.Abs(result.Cost-(0.02+0.3+0.3)) > 1e-9 {
		t.Fatalf("cost = %f", result.Cost)
	}
}

func TestSolvePrefersUnassignedOverBadPair(t *testing.T) {
	// Pairing costs more than leaving both sides unmatched.
	costs := [][]float64{{2.0}}
	result := Solve(costs, 0.6, 0.9)
	if result.RowToCol[0] != -1 {
		t.Fatal("expensive pair should be left unmatched")
	}
	if math.Abs(result.Cost-1.5) > 1e-9 {
		t.Fatalf("cost = %f, want 1.5", result.Cost)
	}
}

func TestSolveTieBreakAscending(t *testing.T) {
	// Every assignment of these rows costs the same; the ascending one wins.
	costs := [][]float64{
		{0.5, 0.5},
		{0.5, 0.5},
	}
	result := Solve(costs, 0.9, 0.9)
	if result.RowToCol[0] != 0 || result.RowToCol[1] != 1 {
		t.Fatalf("RowToCol = %v, want ascending order", result.RowToCol)
	}
}

func TestSolveEmpty(t *testing.T) {
	result := Solve(nil, 0.6, 0.9)
	if len(result.RowToCol) != 0 || result.Cost != 0 {
		t.Fatalf("empty solve = %+v", result)
	}
}

// TestSolveMatchesBruteForce checks the minimum-cost property against an
// exhaustive search over all partial injections on small random instances.
func TestSolveMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const rowPenalty, colPenalty = 0.45, 0.55
	for trial := 0; trial < 200; trial++ {
		rows := 1 + rng.Intn(5)
		cols := 1 + rng.Intn(5)
		costs := make([][]float64, rows)
		for i := range costs {
			costs[i] = make([]float64, cols)
			for j := range costs[i] {
				costs[i][j] = float64(rng.Intn(100)) / 50.0
			}
		}
		got := Solve(costs, rowPenalty, colPenalty)
		want := bruteForce(costs, rowPenalty, colPenalty)
		if math.Abs(got.Cost-want) > 1e-6 {
			t.Fatalf("trial %d: solver cost %f, brute force %f, costs %v",
				trial, got.Cost, want, costs)
		}
	}
}

func bruteForce(costs [][]float64, rowPenalty, colPenalty float64) float64 {
	rows := len(costs)
	cols := len(costs[0])
	best := math.Inf(1)
	assignment := make([]int, rows)

	var recurse func(row int, usedCols int, cost float64)
	recurse = func(row int, usedCols int, cost float64) {
		if row == rows {
			unmatchedCols := cols
			for col := 0; col < cols; col++ {
				if usedCols&(1<<col) != 0 {
					unmatchedCols--
				}
			}
			total := cost + float64(unmatchedCols)*colPenalty
			if total < best {
				best = total
			}
			return
		}
		assignment[row] = -1
		recurse(row+1, usedCols, cost+rowPenalty)
		for col := 0; col < cols; col++ {
			if usedCols&(1<<col) != 0 {
				continue
			}
			assignment[row] = col
			recurse(row+1, usedCols|(1<<col), cost+costs[row][col])
		}
	}
	recurse(0, 0, 0)
	return best
}
