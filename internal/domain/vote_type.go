package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VoteType is the direction of a vote. Only Upvote and Downvote are valid.
type VoteType uint8

const (
	Upvote   VoteType = 1
	Downvote VoteType = 2
)

// ParseVoteType accepts "upvote"/"up"/"+1" and "downvote"/"down"/"-1"
// (case-insensitive).
func ParseVoteType(s string) (VoteType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upvote", "up", "+1", "1":
		return Upvote, nil
	case "downvote", "down", "-1":
		return Downvote, nil
	}
	return 0, fmt.Errorf("invalid vote type %q", s)
}

// Valid reports whether v is one of the declared vote types.
func (v VoteType) Valid() bool {
	switch v {
	case Upvote, Downvote:
		return true
	}
	return false
}

// Delta is the contribution of v to a raw tally.
func (v VoteType) Delta() int32 {
	switch v {
	case Upvote:
		return 1
	case Downvote:
		return -1
	}
	return 0
}

func (v VoteType) String() string {
	switch v {
	case Upvote:
		return "upvote"
	case Downvote:
		return "downvote"
	}
	return fmt.Sprintf("VoteType(%d)", uint8(v))
}

// MarshalJSON encodes the vote type by name.
func (v VoteType) MarshalJSON() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", v)
	}
	return json.Marshal(v.String())
}

// UnmarshalJSON decodes a vote type name.
func (v *VoteType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := ParseVoteType(s)
	if err != nil {
		return err
	}
	*v = t
	return nil
}

// VoteAction classifies a vote history entry.
type VoteAction uint8

const (
	NewVote    VoteAction = 1
	ChangeVote VoteAction = 2
)

func (a VoteAction) String() string {
	switch a {
	case NewVote:
		return "new_vote"
	case ChangeVote:
		return "change_vote"
	}
	return fmt.Sprintf("VoteAction(%d)", uint8(a))
}

// MarshalJSON encodes the action by name.
func (a VoteAction) MarshalJSON() ([]byte, error) {
	switch a {
	case NewVote, ChangeVote:
		return json.Marshal(a.String())
	}
	return nil, fmt.Errorf("cannot marshal %s", a)
}

// UnmarshalJSON decodes an action name.
func (a *VoteAction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "new_vote":
		*a = NewVote
	case "change_vote":
		*a = ChangeVote
	default:
		return fmt.Errorf("invalid vote action %q", s)
	}
	return nil
}
