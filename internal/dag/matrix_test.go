package dag

import (
	"strings"
	"testing"
)

func TestReadMat(t *testing.T) {
	g, err := ReadAdjacencyMatrix("testdata/cycle.txt")
	if err != nil {
		t.Fatalf("ReadAdjacencyMatrix: %v", err)
	}
	ans := [][]int{
		{5},
		{3},
		{8},
		{8},
		{6},
		{4},
		{2},
		{0},
		{1, 6, 7},
	}

	if g.Len() != len(ans) {
		t.Fatalf(`g.Len() = %d, want %d`, g.Len(), len(ans))
	}
	for i := range ans {
		l := g.Children(i)
		if len(l) != len(ans[i]) {
			t.Fatalf(`len(children(%d)) = %d, want %d`, i, len(l), len(ans[i]))
		}
		for j := range l {
			if l[j] != ans[i][j] {
				t.Fatalf(`l[%d][%d] = %d, want %d`, i, j, l[j], ans[i][j])
			}
		}
	}
}

func TestReadRAdj(t *testing.T) {
	g, err := ReadAdjacencyMatrix("testdata/cycle.txt")
	if err != nil {
		t.Fatalf("ReadAdjacencyMatrix: %v", err)
	}
	ans := [][]int{
		{7},
		{8},
		{6},
		{1},
		{5},
		{0},
		{4, 8},
		{8},
		{2, 3},
	}
	for i := range ans {
		deps := g.Node(i).Dependences
		if len(deps) != len(ans[i]) {
			t.Fatalf(`len(deps(%d)) = %d, want %d`, i, len(deps), len(ans[i]))
		}
		for j := range deps {
			if deps[j] != ans[i][j] {
				t.Fatalf(`deps[%d][%d] = %d, want %d`, i, j, deps[j], ans[i][j])
			}
		}
	}
	if len(g.Sources()) != 0 {
		t.Fatalf(`len(sources) = %d, want 0`, len(g.Sources()))
	}
}

func TestReadMatRagged(t *testing.T) {
	_, err := FromAdjacencyMatrix(strings.NewReader("0,1\n0\n"))
	if err == nil {
		t.Fatalf("ragged matrix accepted")
	}
	_, err = FromAdjacencyMatrix(strings.NewReader("0,x\n0,0\n"))
	if err == nil {
		t.Fatalf("non numeric cell accepted")
	}
}
