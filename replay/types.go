package replay

import "google.golang.org/protobuf/types/known/structpb"

type GameSpec struct {
	Rounds int `json:"rounds,omitempty"`
	// nil means the default of three rolls; 0 means unlimited.
	RollsPerTurn    *int         `json:"rolls_per_turn,omitempty"`
	BlockZeroScores bool         `json:"block_zero_scores,omitempty"`
	Actions         []ActionSpec `json:"actions"`
	RNG             *RNGSpec     `json:"rng,omitempty"`
}

// ActionSpec is one player action. Die is the 0-based die for HOLD; Category
// is the category name for SCORE; Expect optionally pins the dice a ROLL must
// produce.
type ActionSpec struct {
	Type     string `json:"type"`
	Die      int    `json:"die,omitempty"`
	Category string `json:"category,omitempty"`
	Expect   []int  `json:"expect,omitempty"`
}

type RNGSpec struct {
	Seed int64 `json:"seed"`
}

type ReplayTape struct {
	TapeVersion int           `json:"tape_version"`
	GameID      string        `json:"game_id"`
	Seed        int64         `json:"seed"`
	FinalTotal  int           `json:"final_total"`
	Events      []ReplayEvent `json:"events"`
}

type ReplayEvent struct {
	Type        string           `json:"type"`
	Seq         uint64           `json:"seq"`
	Value       *structpb.Struct `json:"value,omitempty"`
	EnvelopeB64 string           `json:"envelope_b64,omitempty"`
}
