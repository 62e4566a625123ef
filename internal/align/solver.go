package align

import "math"

const costEpsilon = 1e-9

// Result describes one minimum-cost assignment. RowToCol[i] is the column
// assigned to row i, or -1 when the row is unassigned and pays rowPenalty.
type Result struct {
	RowToCol []int
	Cost     float64
}

// UnassignedCols returns the columns no row was assigned to, ascending.
func (r Result) UnassignedCols(cols int) []int {
	taken := make([]bool, cols)
	for _, col := range r.RowToCol {
		if col >= 0 {
			taken[col] = true
		}
	}
	var out []int
	for col := 0; col < cols; col++ {
		if !taken[col] {
			out = append(out, col)
		}
	}
	return out
}

// Solve finds a minimum-total-cost partial assignment of rows to columns.
// costs[i][j] is the price of pairing row i with column j; an unassigned row
// costs rowPenalty and an unassigned column costs colPenalty. Among
// equal-cost solutions the one pairing rows and columns in ascending order is
// returned.
func Solve(costs [][]float64, rowPenalty, colPenalty float64) Result {
	rows := len(costs)
	cols := 0
	if rows > 0 {
		cols = len(costs[0])
	}
	if rows == 0 || cols == 0 {
		return Result{
			RowToCol: unassignedRows(rows),
			Cost:     float64(rows)*rowPenalty + float64(cols)*colPenalty,
		}
	}

	if rows == cols {
		if result, ok := identityShortcut(costs, rowPenalty, colPenalty); ok {
			return result
		}
	}

	// Pad to a square matrix of side rows+cols so every row and column can
	// opt out through a dummy partner at its fixed penalty.
	side := rows + cols
	padded := make([][]float64, side)
	for i := 0; i < side; i++ {
		padded[i] = make([]float64, side)
		for j := 0; j < side; j++ {
			switch {
			case i < rows && j < cols:
				padded[i][j] = costs[i][j]
			case i < rows:
				padded[i][j] = rowPenalty
			case j < cols:
				padded[i][j] = colPenalty
			default:
				padded[i][j] = 0
			}
		}
	}

	assignment := hungarian(padded)
	result := Result{RowToCol: make([]int, rows)}
	for i := 0; i < rows; i++ {
		col := assignment[i]
		if col >= cols {
			col = -1
		}
		result.RowToCol[i] = col
	}
	canonicalize(costs, result.RowToCol)
	result.Cost = totalCost(costs, result.RowToCol, rowPenalty, colPenalty)
	return result
}

// identityShortcut accepts the position-preserving assignment when its cost
// meets a lower bound on every possible assignment, which proves optimality
// without running the full solver.
func identityShortcut(costs [][]float64, rowPenalty, colPenalty float64) (Result, bool) {
	n := len(costs)
	diagonal := 0.0
	bound := 0.0
	for i := 0; i < n; i++ {
		diagonal += costs[i][i]
		rowMin := rowPenalty
		for j := 0; j < n; j++ {
			if costs[i][j] < rowMin {
				rowMin = costs[i][j]
			}
		}
		bound += rowMin
	}
	if diagonal > bound+costEpsilon {
		return Result{}, false
	}
	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = i
	}
	return Result{RowToCol: assignment, Cost: diagonal}, true
}

// hungarian solves the square assignment problem with the shortest augmenting
// path method and dual potentials, O(n^3).
func hungarian(cost [][]float64) []int {
	n := len(cost)
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	matchedRow := make([]int, n+1) // column -> assigned row, 1-based
	way := make([]int, n+1)

	for row := 1; row <= n; row++ {
		matchedRow[0] = row
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}
		for {
			used[j0] = true
			i0 := matchedRow[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				reduced := cost[i0-1][j-1] - u[i0] - v[j]
				if reduced < minv[j] {
					minv[j] = reduced
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[matchedRow[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if matchedRow[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			matchedRow[j0] = matchedRow[j1]
			j0 = j1
		}
	}

	assignment := make([]int, n)
	for j := 1; j <= n; j++ {
		if matchedRow[j] > 0 {
			assignment[matchedRow[j]-1] = j - 1
		}
	}
	return assignment
}

// canonicalize swaps pair targets between out-of-order rows whenever doing so
// keeps the total cost unchanged, so equal-cost solutions always come out in
// file order.
func canonicalize(costs [][]float64, rowToCol []int) {
	for changed := true; changed; {
		changed = false
		for a := 0; a < len(rowToCol); a++ {
			ca := rowToCol[a]
			if ca < 0 {
				continue
			}
			for b := a + 1; b < len(rowToCol); b++ {
				cb := rowToCol[b]
				if cb < 0 || ca < cb {
					continue
				}
				current := costs[a][ca] + costs[b][cb]
				swapped := costs[a][cb] + costs[b][ca]
				if math.Abs(current-swapped) <= costEpsilon {
					rowToCol[a], rowToCol[b] = cb, ca
					ca = cb
					changed = true
				}
			}
		}
	}
}

func totalCost(costs [][]float64, rowToCol []int, rowPenalty, colPenalty float64) float64 {
	cols := 0
	if len(costs) > 0 {
		cols = len(costs[0])
	}
	assignedCols := 0
	total := 0.0
	for row, col := range rowToCol {
		if col < 0 {
			total += rowPenalty
			continue
		}
		total += costs[row][col]
		assignedCols++
	}
	total += float64(cols-assignedCols) * colPenalty
	return total
}

func unassignedRows(rows int) []int {
	out := make([]int, rows)
	for i := range out {
		out[i] = -1
	}
	return out
}
