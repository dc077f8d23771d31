package blobs

// Refine replaces each blob's (x,y) with the flux-weighted centroid of its
// 3x3 neighbourhood on the raw (unfiltered, unpacked) image. blobs carry
// image-frame y; raw is indexed in memory order, so each read reflects y
// back with height-y before touching the pixel buffer.
func Refine(blobsIn []Blob, raw []uint16, width, height int) {
	for idx := range blobsIn {
		refineOne(&blobsIn[idx], raw, width, height)
	}
}

func refineOne(b *Blob, raw []uint16, width, height int) {
	cx := int(b.X)
	cy := height - int(b.Y) // back to memory order

	var sum float64
	var sx, sy float64
	for dj := -1; dj <= 1; dj++ {
		j := cy + dj
		if j < 0 || j >= height {
			continue
		}
		for di := -1; di <= 1; di++ {
			i := cx + di
			if i < 0 || i >= width {
				continue
			}
			v := float64(raw[j*width+i])
			sum += v
			sx += float64(i) * v
			sy += float64(j) * v
		}
	}
	if sum == 0 {
		return
	}
	newX := sx / sum
	newMemY := sy / sum
	b.X = newX
	b.Y = float64(height) - newMemY
}
