package leaderboard

// Entry is one ranked record. Lower scores rank first; Seq breaks ties in
// insertion order.
type Entry struct {
	ID    string
	Score float64
	Seq   uint64
}

// Board abstracts an ascending, tie-stable ranking.
type Board interface {
	Insert(id string, score float64) Entry
	Remove(id string)
	TopN(n int) []Entry
	Get(id string) (Entry, bool)
	Len() int
}
