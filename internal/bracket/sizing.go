package bracket

import (
	"math"
)

// MinParticipants is the smallest pool a knockout stage can be built from.
const MinParticipants = 2

// BracketSize gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func BracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// RoundCount is the number of winners bracket rounds for a participant count.
func RoundCount(count int) int {
	size := BracketSize(count)
	if size < 2 {
		return 0
	}
	return int(math.Log2(float64(size)))
}

// SeedPairs returns the round 1 pairings as zero-based seed indexes, arranged
// so the top seeds can only meet in the latest rounds. An index at or past the
// participant count is a bye.
func SeedPairs(bracketSize int) [][2]int {
	if bracketSize == 0 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		pairs = append(pairs, [2]int{rounds[i], rounds[i+1]})
	}

	return pairs
}
