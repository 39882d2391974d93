package model

import "time"

// NationalDomainID is the BPS domain covering all of Indonesia. Dynamic-table
// reference lists missing at a regional level are looked up here instead.
const NationalDomainID = "0000"

// Domain is a geographic or administrative region the provider organizes
// statistics by.
type Domain struct {
	ID   string `json:"domain_id"`
	Name string `json:"domain_name"`
	URL  string `json:"domain_url,omitempty"`
}

// CacheEntry is a cached domain list together with the time it was written.
type CacheEntry struct {
	Domains   []Domain
	WrittenAt time.Time
}

// Age returns how long ago the entry was written, relative to now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.WrittenAt)
}
