package endorse

import "time"

// Result is the only shape that leaves the service
type Result struct {
	Success   bool       `json:"success"`
	Counter   *int64     `json:"counter,omitempty"`
	Remaining *int64     `json:"remaining,omitempty"`
	PinExpiry *time.Time `json:"pinExpiry,omitempty"`
	Error     ErrorKind  `json:"error,omitempty"`
}

func failure(kind ErrorKind) Result {
	return Result{Error: kind}
}

func cooldownFailure(remaining time.Duration) Result {
	ms := remaining.Milliseconds()
	if ms < 1 {
		// never report a cooldown with nothing left on it
		ms = 1
	}
	return Result{Error: ErrCooldown, Remaining: &ms}
}

func endorsed(counter int64) Result {
	return Result{Success: true, Counter: &counter}
}

func pinned(duration time.Duration, expiry time.Time) Result {
	ms := duration.Milliseconds()
	return Result{Success: true, Remaining: &ms, PinExpiry: &expiry}
}

// Request carries one endorse or pin attempt. Optional fields are nil when
// the client did not send them; a present but empty token still has to verify.
type Request struct {
	ActorID       string
	ItemID        string
	ItemType      string
	SecurityToken *string
	ItemName      *string
	Timestamp     *time.Time
}

// TokenResult is returned by IssuePinToken
type TokenResult struct {
	Success   bool       `json:"success"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	ExpiresIn *int64     `json:"expiresIn,omitempty"`
	Error     ErrorKind  `json:"error,omitempty"`
}

type Cooldowns struct {
	Endorse int64 `json:"endorse"`
	Pin     int64 `json:"pin"`
}

// StatusResult is the public read model for an item
type StatusResult struct {
	Success   bool       `json:"success"`
	ItemID    string     `json:"itemId,omitempty"`
	ItemType  string     `json:"itemType,omitempty"`
	Name      string     `json:"name,omitempty"`
	Counter   int64      `json:"counter"`
	Pinned    bool       `json:"pinned"`
	PinExpiry *time.Time `json:"pinExpiry,omitempty"`
	Cooldowns *Cooldowns `json:"cooldowns,omitempty"`
	Error     ErrorKind  `json:"error,omitempty"`
}
