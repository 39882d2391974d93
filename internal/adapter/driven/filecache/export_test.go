package filecache

import "time"

// SetClock replaces the time source used for expiry checks.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }
