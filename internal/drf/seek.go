package drf

// SeekResult reports the outcome of Seek (§4.1).
type SeekResult int

const (
	// SeekFound means the target instant lies within the returned block
	// index (or the immediately prior block, which the algorithm already
	// backs off into).
	SeekFound SeekResult = iota
	// SeekBeforeFirstBlock means the target precedes the first block's
	// start time (by any amount); the caller should open the previous
	// day-file and re-seek.
	SeekBeforeFirstBlock
	// SeekNotFound means the scan completed without a hit.
	SeekNotFound
)

// toleranceSeconds is the ±60s window within which a target instant is
// considered to fall in the scanned block or the one immediately before it.
const toleranceSeconds = 60

// Seek implements §4.1's linear-scan seek algorithm: given a target UTC
// instant (unix seconds), find the block index that contains it.
func Seek(index []BlockDescriptor, target int64) (SeekResult, int) {
	for i, desc := range index {
		delta := target - desc.StartTime

		if i == 0 && delta < 0 {
			return SeekBeforeFirstBlock, 0
		}

		if desc.StartTime != 0 {
			abs := delta
			if abs < 0 {
				abs = -abs
			}
			if abs <= toleranceSeconds {
				if i > 0 {
					i--
				}
				return SeekFound, i
			}
		}
	}
	return SeekNotFound, 0
}
