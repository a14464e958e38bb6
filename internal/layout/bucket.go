// Package layout places schedule events on a fixed-height hour grid.
//
// Event heights are quantized into a small set of duration buckets so that
// blocks of similar length render at the same, visually distinguishable size.
package layout

// Bucket durations in minutes, ascending. The index of a bucket selects its
// pixel height in bucketHeights.
var bucketMinutes = [...]int{0, 15, 30, 45, 60}

var bucketHeights = [...]int{24, 30, 60, 90, 120}

// BucketHeight returns the pixel height of a bucket, or 0 if b is not a bucket.
func BucketHeight(b int) int {
	for i, m := range bucketMinutes {
		if m == b {
			return bucketHeights[i]
		}
	}
	return 0
}

// Buckets reduces a duration to the buckets used to draw it.
//
// Durations up to an hour map to the single closest bucket (ties go to the
// smaller one). Longer durations are split greedily into the largest buckets
// that fit; a remainder shorter than the smallest non-zero bucket is replaced
// by its closest bucket, so the result only approximates the input.
// Negative durations are treated as zero. The result is never empty.
func Buckets(durationMinutes int) []int {
	if durationMinutes <= 0 {
		return []int{0}
	}
	if durationMinutes <= 60 {
		return []int{closestBucket(durationMinutes)}
	}

	var out []int
	remaining := durationMinutes
	for remaining > 0 {
		b := largestFit(remaining)
		if b == 0 {
			out = append(out, closestBucket(remaining))
			break
		}
		out = append(out, b)
		remaining -= b
	}
	return out
}

// HeightForDuration returns the summed pixel height of the duration's buckets.
func HeightForDuration(durationMinutes int) int {
	total := 0
	for _, b := range Buckets(durationMinutes) {
		total += BucketHeight(b)
	}
	return total
}

func closestBucket(minutes int) int {
	best := bucketMinutes[0]
	bestDist := absInt(minutes - best)
	for _, b := range bucketMinutes[1:] {
		if d := absInt(minutes - b); d < bestDist {
			best, bestDist = b, d
		}
	}
	return best
}

// largestFit returns the largest non-zero bucket <= minutes, or 0 if none fits.
func largestFit(minutes int) int {
	for i := len(bucketMinutes) - 1; i > 0; i-- {
		if bucketMinutes[i] <= minutes {
			return bucketMinutes[i]
		}
	}
	return 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
