package chunk_test

import (
	"slices"
	"strconv"
	"testing"

	"ytbatch/pkg/chunk"
)

func seq(n int) []string {
	items := make([]string, n)
	for i := range n {
		items[i] = "id" + strconv.Itoa(i)
	}

	return items
}

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		n         int
		size      int
		wantSizes []int
	}{
		{name: "empty", n: 0, size: 200, wantSizes: nil},
		{name: "single short batch", n: 3, size: 200, wantSizes: []int{3}},
		{name: "exact multiple", n: 400, size: 200, wantSizes: []int{200, 200}},
		{name: "short tail", n: 401, size: 200, wantSizes: []int{200, 200, 1}},
		{name: "size one", n: 3, size: 1, wantSizes: []int{1, 1, 1}},
		{name: "zero size treated as one", n: 2, size: 0, wantSizes: []int{1, 1}},
		{name: "size larger than input", n: 5, size: 7, wantSizes: []int{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			items := seq(tt.n)
			got := chunk.Split(items, tt.size)

			sizes := make([]int, 0, len(got))
			for _, c := range got {
				sizes = append(sizes, len(c))
			}

			if len(got) != len(tt.wantSizes) || !slices.Equal(sizes, tt.wantSizes) {
				t.Fatalf("Split() sizes = %v, want %v", sizes, tt.wantSizes)
			}

			if want := chunk.Count(tt.n, tt.size); len(got) != want {
				t.Errorf("len(Split()) = %d, Count() = %d", len(got), want)
			}

			if joined := slices.Concat(got...); !slices.Equal(joined, items) {
				t.Errorf("concatenated chunks = %v, want %v", joined, items)
			}
		})
	}
}

func TestSplitPartitionProperty(t *testing.T) {
	t.Parallel()

	for n := range 60 {
		for size := 1; size <= 13; size++ {
			items := seq(n)
			got := chunk.Split(items, size)

			wantCount := (n + size - 1) / size
			if len(got) != wantCount {
				t.Fatalf("n=%d size=%d: got %d chunks, want %d", n, size, len(got), wantCount)
			}

			for i, c := range got {
				if len(c) == 0 || len(c) > size {
					t.Fatalf("n=%d size=%d: chunk %d has %d items", n, size, i, len(c))
				}
			}

			if joined := slices.Concat(got...); !slices.Equal(joined, items) {
				t.Fatalf("n=%d size=%d: order not preserved", n, size)
			}
		}
	}
}

func TestSplitChunksDoNotOverlapOnAppend(t *testing.T) {
	t.Parallel()

	items := seq(4)
	got := chunk.Split(items, 2)

	_ = append(got[0], "intruder")

	if items[2] != "id2" {
		t.Errorf("append to first chunk overwrote the second: %v", items)
	}
}
