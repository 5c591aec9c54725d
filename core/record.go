package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout matches the ISO-8601 form produced by browsers (millisecond precision, UTC "Z").
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Reserved JSON keys of a Record, in encoding order.
var recordKeys = []string{"id", "gameType", "difficulty", "score", "moves", "timeSpent", "date", "completed", "bestScore"}

func isReservedKey(k string) bool {
	for _, r := range recordKeys {
		if r == k {
			return true
		}
	}
	return false
}

// Record is one persisted play. Scores are minimised: lower is better for every game.
// Extra carries caller-supplied fields that are preserved verbatim.
type Record struct {
	ID         string
	GameType   GameType
	Difficulty Difficulty
	Score      float64
	Moves      int
	TimeSpent  int64 // milliseconds
	Date       time.Time
	Completed  bool
	// BestScore is set when the record beat the partition best at the time it was written.
	BestScore bool
	Extra     map[string]any
}

// Partition returns the bucket the record belongs to.
func (r Record) Partition() Partition {
	return Partition{Game: r.GameType, Difficulty: r.Difficulty}
}

// Clone returns a copy whose Extra map is not shared with r.
func (r Record) Clone() Record {
	cp := r
	if r.Extra != nil {
		cp.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			cp.Extra[k] = v
		}
	}
	return cp
}

// Fields returns the record as ordered key/value pairs: core fields first, then extras sorted by key.
func (r Record) Fields() []Field {
	out := []Field{
		{"id", r.ID},
		{"gameType", string(r.GameType)},
		{"difficulty", string(r.Difficulty)},
		{"score", r.Score},
		{"moves", r.Moves},
		{"timeSpent", r.TimeSpent},
		{"date", r.Date.UTC().Format(DateLayout)},
		{"completed", r.Completed},
		{"bestScore", r.BestScore},
	}
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		if !isReservedKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, Field{k, r.Extra[k]})
	}
	return out
}

// Field is one named value of an encoded record.
type Field struct {
	Key   string
	Value any
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(f.Key)
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode record field %s: %w", f.Key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Record
	out.Completed = true // records without the field come from the newer schema
	for k, v := range raw {
		var err error
		switch k {
		case "id":
			err = json.Unmarshal(v, &out.ID)
		case "gameType":
			err = json.Unmarshal(v, &out.GameType)
		case "difficulty":
			err = json.Unmarshal(v, &out.Difficulty)
		case "score":
			out.Score, err = decodeNumber(v)
		case "moves":
			var f float64
			f, err = decodeNumber(v)
			out.Moves = int(f)
		case "timeSpent":
			var f float64
			f, err = decodeNumber(v)
			out.TimeSpent = int64(f)
		case "date":
			var s string
			if err = json.Unmarshal(v, &s); err == nil {
				out.Date, err = time.Parse(time.RFC3339Nano, s)
			}
		case "completed":
			err = json.Unmarshal(v, &out.Completed)
		case "bestScore":
			err = json.Unmarshal(v, &out.BestScore)
		default:
			var val any
			if err = json.Unmarshal(v, &val); err == nil {
				if out.Extra == nil {
					out.Extra = map[string]any{}
				}
				out.Extra[k] = val
			}
		}
		if err != nil {
			return fmt.Errorf("decode record field %s: %w", k, err)
		}
	}
	*r = out
	return nil
}

// decodeNumber accepts null as zero, mirroring the `|| 0` defaulting of older writers.
func decodeNumber(v json.RawMessage) (float64, error) {
	if string(v) == "null" {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// ScoreData is the caller input for recording a play.
// A nil Completed means the play finished.
type ScoreData struct {
	Score     float64
	Moves     int
	TimeSpent int64
	Completed *bool
	Extra     map[string]any
}

func (s *ScoreData) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out ScoreData
	for k, v := range raw {
		var err error
		switch k {
		case "score":
			out.Score, err = decodeNumber(v)
		case "moves":
			var f float64
			f, err = decodeNumber(v)
			out.Moves = int(f)
		case "timeSpent":
			var f float64
			f, err = decodeNumber(v)
			out.TimeSpent = int64(f)
		case "completed":
			var c bool
			if err = json.Unmarshal(v, &c); err == nil {
				out.Completed = &c
			}
		default:
			if isReservedKey(k) {
				continue
			}
			var val any
			if err = json.Unmarshal(v, &val); err == nil {
				if out.Extra == nil {
					out.Extra = map[string]any{}
				}
				out.Extra[k] = val
			}
		}
		if err != nil {
			return fmt.Errorf("decode score field %s: %w", k, err)
		}
	}
	*s = out
	return nil
}

func (s ScoreData) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Extra)+4)
	for k, v := range s.Extra {
		m[k] = v
	}
	m["score"] = s.Score
	m["moves"] = s.Moves
	m["timeSpent"] = s.TimeSpent
	if s.Completed != nil {
		m["completed"] = *s.Completed
	}
	return json.Marshal(m)
}

// NewRecord builds a record for p at time now. ID and date are always assigned here,
// never taken from the caller; extras that collide with core keys are dropped.
func NewRecord(p Partition, data ScoreData, now time.Time) (Record, error) {
	if math.IsNaN(data.Score) || math.IsInf(data.Score, 0) {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidScore, data.Score)
	}
	rec := Record{
		ID:         NewRecordID(),
		GameType:   p.Game,
		Difficulty: p.Difficulty,
		Score:      data.Score,
		Moves:      data.Moves,
		TimeSpent:  data.TimeSpent,
		Date:       now.UTC().Truncate(time.Millisecond),
		Completed:  data.Completed == nil || *data.Completed,
	}
	for k, v := range data.Extra {
		if isReservedKey(k) {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = map[string]any{}
		}
		rec.Extra[k] = v
	}
	return rec, nil
}

// Bool returns a pointer to b, for optional fields such as ScoreData.Completed.
func Bool(b bool) *bool { return &b }
