package model

import "strconv"

// UnlimitedTrials is what the backend reports as remaining trials for admins
const UnlimitedTrials = 999999

// Entitlement is the trial allowance of the logged in user
type Entitlement struct {
	RemainingTrials int  `json:"remaining_trials"`
	IsAdmin         bool `json:"is_admin"`
}

// HasTrials reports whether a generation is allowed
func (e Entitlement) HasTrials() bool {
	return e.IsAdmin || e.RemainingTrials > 0
}

// Display returns the remaining trial count as shown to the user
func (e Entitlement) Display() string {
	if e.IsAdmin {
		return "Unlimited"
	}
	return strconv.Itoa(e.RemainingTrials)
}
