package compress

import "github.com/AnyUserName/imgfit/internal/encoder"

// qualityStep is how far the search moves past a tested midpoint.
const qualityStep = 0.05

// encodeAt encodes the current canvas at the given quality.
type encodeAt func(quality float64) (encoder.Blob, error)

// searchResult is the best in-budget encoding found by searchQuality.
type searchResult struct {
	blob    encoder.Blob
	quality float64
	tried   int
	// smallest is the smallest encoded size seen, for diagnostics.
	smallest int
}

// searchQuality binary-searches [low, high] for the highest quality whose
// encoding fits in budget bytes. ok is false when nothing fits, even at
// low. Encode errors abort the search.
func searchQuality(encode encodeAt, low, high float64, budget int) (res searchResult, ok bool, err error) {
	for low <= high {
		mid := (low + high) / 2
		blob, err := encode(mid)
		if err != nil {
			return searchResult{}, false, err
		}
		res.tried++
		if res.tried == 1 || blob.Size() < res.smallest {
			res.smallest = blob.Size()
		}

		if blob.Size() <= budget {
			res.blob = blob
			res.quality = mid
			ok = true
			low = mid + qualityStep
		} else {
			high = mid - qualityStep
		}
	}
	return res, ok, nil
}
