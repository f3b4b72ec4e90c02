package auction

// Placeholder display values used when no question matches the opened
// index and after an abort.
const (
	PlaceholderTitle       = "Waiting for problem..."
	PlaceholderDescription = "No problem in bid"
)

// LotState is the single source of truth for what is currently being
// bid on, by whom, and for how much. It is owned by the Controller and
// mutated only under its lock.
type LotState struct {
	Open         bool
	Index        *int
	Title        string
	Description  string
	Tag          *string
	LeaderTeam   string
	LeaderAmount int64
}

// reset clears the state back to the no-lot-open baseline.
func (s *LotState) reset() {
	*s = LotState{
		Title:       PlaceholderTitle,
		Description: PlaceholderDescription,
	}
}

func (s *LotState) snapshot() SnapshotPayload {
	return SnapshotPayload{
		Open:         s.Open,
		Index:        s.Index,
		Title:        s.Title,
		Description:  s.Description,
		Tag:          s.Tag,
		LeaderTeam:   s.LeaderTeam,
		LeaderAmount: s.LeaderAmount,
	}
}
