package crowdsale

import "github.com/holiman/uint256"

// SaleState carries the running totals and flags of the sale. The engine is
// its sole writer; a persisted copy survives restarts through the state
// backend.
type SaleState struct {
	Owner           [20]byte     `json:"owner"`
	Wallet          [20]byte     `json:"wallet"`
	TokenVault      [20]byte     `json:"tokenVault"`
	TokenConfigured bool         `json:"tokenConfigured"`
	Rate            *uint256.Int `json:"rate"`
	BonusMultiplier *uint256.Int `json:"bonusMultiplier"`
	Goal            *uint256.Int `json:"goal"`
	WeiRaised       *uint256.Int `json:"weiRaised"`
	TokensIssued    *uint256.Int `json:"tokensIssued"`
	IsClose         bool         `json:"isClose"`
	IsFinalized     bool         `json:"isFinalized"`
}

// bonusDenominator scales the bonus multiplier: a multiplier of 1000 applies
// no bonus.
const bonusDenominator = 1000

// Clone returns a deep copy of the sale state.
func (s *SaleState) Clone() *SaleState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Rate = cloneAmount(s.Rate)
	clone.BonusMultiplier = cloneAmount(s.BonusMultiplier)
	clone.Goal = cloneAmount(s.Goal)
	clone.WeiRaised = cloneAmount(s.WeiRaised)
	clone.TokensIssued = cloneAmount(s.TokensIssued)
	return &clone
}

// GoalReached reports whether the raised total has met the funding goal.
func (s *SaleState) GoalReached() bool {
	if s == nil || s.WeiRaised == nil || s.Goal == nil {
		return false
	}
	return !s.WeiRaised.Lt(s.Goal)
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(v)
}

func isZeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}
