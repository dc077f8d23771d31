package blobs

// SortDescending sorts blobs by magnitude, brightest first, using an
// iterative bottom-up merge sort. The source material implemented this
// recursively; an iterative merge avoids unbounded recursion depth when
// the blob count is large.
func SortDescending(blobs []Blob) {
	n := len(blobs)
	if n < 2 {
		return
	}
	buf := make([]Blob, n)
	src := blobs
	dst := buf

	for width := 1; width < n; width *= 2 {
		for lo := 0; lo < n; lo += 2 * width {
			mid := lo + width
			if mid > n {
				mid = n
			}
			hi := lo + 2*width
			if hi > n {
				hi = n
			}
			mergeDescending(src, dst, lo, mid, hi)
		}
		src, dst = dst, src
	}

	if &src[0] != &blobs[0] {
		copy(blobs, src)
	}
}

func mergeDescending(src, dst []Blob, lo, mid, hi int) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if src[i].Magnitude >= src[j].Magnitude {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	for i < mid {
		dst[k] = src[i]
		i++
		k++
	}
	for j < hi {
		dst[k] = src[j]
		j++
		k++
	}
}
