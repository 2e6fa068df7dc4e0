package codec

import "math"

// MaxCodeLength is the hard cap for recommended code lengths.
const MaxCodeLength = 12

// RecommendCodeLength returns the smallest code length whose birthday-bound
// collision probability for expectedURLs random codes stays at or below
// maxCollisionProbability. The bound used is 1 - exp(-n^2 / (2 * B^L)).
//
// Returns MaxCodeLength if no length satisfies the target.
func RecommendCodeLength(expectedURLs int64, maxCollisionProbability float64) int {
	if expectedURLs <= 1 {
		return 1
	}

	n := float64(expectedURLs)
	for length := 1; length <= MaxCodeLength; length++ {
		space := math.Pow(float64(Base), float64(length))
		p := 1 - math.Exp(-(n*n)/(2*space))
		if p <= maxCollisionProbability {
			return length
		}
	}
	return MaxCodeLength
}
