package bracket

import (
	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/google/uuid"
)

// MaxGroups is bounded by the single-letter group names.
const MaxGroups = 26

// PartitionGroups slices the pool into contiguous chunks of ceil(n/numGroups).
// The last chunks may be smaller, and fewer chunks than requested may come out
// when the pool does not divide evenly.
func PartitionGroups(participants []uuid.UUID, numGroups int) ([][]uuid.UUID, error) {
	if len(participants) == 0 {
		return nil, apperr.InvalidState("cannot build groups from an empty pool")
	}
	if numGroups < 1 {
		return nil, apperr.InvalidState("number of groups must be at least 1, got %d", numGroups)
	}

	size := (len(participants) + numGroups - 1) / numGroups
	chunks := (len(participants) + size - 1) / size
	if chunks > MaxGroups {
		return nil, apperr.CapacityExceeded("%d groups needed, at most %d supported", chunks, MaxGroups)
	}

	groups := make([][]uuid.UUID, 0, chunks)
	for start := 0; start < len(participants); start += size {
		end := min(start+size, len(participants))
		groups = append(groups, participants[start:end])
	}
	return groups, nil
}

func GroupLetter(index int) string {
	return string(rune('A' + index))
}

// RoundRobinPairs returns one pairing per unordered pair of indexes below n.
func RoundRobinPairs(n int) [][2]int {
	var pairs [][2]int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}
