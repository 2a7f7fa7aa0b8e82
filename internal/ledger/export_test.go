package ledger

import "time"

// SetClock replaces the clock that stamps new transactions.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }
