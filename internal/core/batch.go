package core

// Chunk splits products into contiguous batches of size, preserving order.
// The last batch may be shorter. A non-positive size falls back to BatchSize.
func Chunk(products []ValidatedProduct, size int) []Batch {
	if size <= 0 {
		size = BatchSize
	}

	batches := make([]Batch, 0, (len(products)+size-1)/size)
	for start := 0; start < len(products); start += size {
		end := min(start+size, len(products))
		batches = append(batches, Batch(products[start:end:end]))
	}
	return batches
}
