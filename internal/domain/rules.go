package domain

import "wordchain/internal/apperr"

// DeathmatchType is the only implemented game mode.
const DeathmatchType = "deathmatch"

// DeathmatchRules parameterize one game. Immutable once a game starts.
type DeathmatchRules struct {
	Type       string `json:"type"`
	RoundTime  int    `json:"roundTime"`
	StartScore int    `json:"startScore"`
	Penalty    int    `json:"penalty"`
	Reward     int    `json:"reward"`
}

// DefaultDeathmatchRules returns the rules applied when a room is created
// without explicit ones.
func DefaultDeathmatchRules() DeathmatchRules {
	return DeathmatchRules{
		Type:       DeathmatchType,
		RoundTime:  10,
		StartScore: 0,
		Penalty:    -5,
		Reward:     2,
	}
}

// Validate checks the per-field bounds. Field names follow the wire casing
// so validation errors map straight onto the request body.
func (r DeathmatchRules) Validate() error {
	fields := map[string][]string{}
	if r.Type != DeathmatchType {
		fields["type"] = append(fields["type"], "unsupported game type")
	}
	if r.RoundTime < 3 || r.RoundTime > 30 {
		fields["roundTime"] = append(fields["roundTime"], "must be between 3 and 30")
	}
	if r.StartScore < 0 || r.StartScore > 10 {
		fields["startScore"] = append(fields["startScore"], "must be between 0 and 10")
	}
	if r.Penalty < -10 || r.Penalty > 0 {
		fields["penalty"] = append(fields["penalty"], "must be between -10 and 0")
	}
	if r.Reward < 0 || r.Reward > 10 {
		fields["reward"] = append(fields["reward"], "must be between 0 and 10")
	}
	if len(fields) > 0 {
		return &apperr.Error{Kind: apperr.KindValidation, Msg: "invalid rules", Fields: fields}
	}
	return nil
}
