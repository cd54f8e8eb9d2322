package vote

import "github.com/dkeye/Stage/internal/domain"

// ballotBox holds the response set of one poll or quiz. The tally is
// always recounted from it; there is no separate counter to drift.
type ballotBox struct {
	eventID   domain.EventID
	responses map[domain.UserID]int
}

func newBallotBox(eventID domain.EventID) *ballotBox {
	return &ballotBox{eventID: eventID, responses: make(map[domain.UserID]int)}
}

func (b *ballotBox) tally(options int) []int {
	counts := make([]int, options)
	for _, i := range b.responses {
		if i >= 0 && i < options {
			counts[i]++
		}
	}
	return counts
}
