// Package chunk splits slices into contiguous fixed-size parts.
package chunk

// Split partitions items into consecutive chunks of at most size elements.
// The last chunk may be shorter. A size below 1 is treated as 1.
// Chunks share the backing array of items.
func Split[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}

	if len(items) == 0 {
		return nil
	}

	chunks := make([][]T, 0, Count(len(items), size))

	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}

	return chunks
}

// Count returns ceil(n/size), the number of chunks Split produces for n items.
func Count(n, size int) int {
	if n <= 0 {
		return 0
	}

	if size < 1 {
		size = 1
	}

	return (n + size - 1) / size
}
