package dag

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadAdjacencyMatrix loads a hand-built graph fixture, see FromAdjacencyMatrix.
func ReadAdjacencyMatrix(path string) (*TaskGraph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open adjacency matrix")
	}
	defer file.Close()

	return FromAdjacencyMatrix(file)
}

func readMat(r io.Reader) ([][]int, error) {
	var m [][]int

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		row := make([]int, 0)
		for _, v := range strings.Split(text, ",") {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, errors.Wrapf(err, "row %d", len(m))
			}
			row = append(row, i)
		}
		m = append(m, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i, row := range m {
		if len(row) != len(m) {
			return nil, errors.Errorf("row %d has %d columns, want %d", i, len(row), len(m))
		}
	}
	return m, nil
}

// FromAdjacencyMatrix builds a dense graph from comma separated 0/1 rows where
// m[i][j] == 1 is an edge i -> j. Lines starting with '#' are comments. Nodes
// are named task1..taskN, carry one instance and get parent lists in column order.
func FromAdjacencyMatrix(r io.Reader) (*TaskGraph, error) {
	m, err := readMat(r)
	if err != nil {
		return nil, err
	}

	g := New()
	g.Dense = true
	for i := range m {
		g.AddNode(Task{
			Name:        fmt.Sprintf("task%d", i+1),
			InstanceCnt: 1,
			Dependences: make([]int, 0),
		})
	}
	for i, row := range m {
		for j, c := range row {
			if c == 1 {
				g.AddDependency(j, i)
			}
		}
	}
	return g, nil
}
