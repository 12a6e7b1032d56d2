// internal/types/types.go
package types

import (
	"time"
)

// FeedCategory identifies one of the pipeline's token result buckets.
type FeedCategory string

const (
	FeedEarly     FeedCategory = "early"     // $50K-99K liquidity tier
	FeedConfirmed FeedCategory = "confirmed" // $100K-199K liquidity tier
	FeedTargets   FeedCategory = "targets"   // $200K+ liquidity tier
)

// FeedCategories lists every bucket the aggregator pulls, in display order.
var FeedCategories = []FeedCategory{FeedEarly, FeedConfirmed, FeedTargets}

// Token is an immutable snapshot of a detected token as returned by the
// pipeline. Identity is the address; two snapshots of the same address from
// different fetches are distinct values.
type Token struct {
	Address       string    `json:"address"`
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Liquidity     float64   `json:"liquidity"`
	Volume        float64   `json:"volume"`
	PriceChangeH1 float64   `json:"priceChangeH1"`
	PriceChange24 float64   `json:"priceChangeH24"`
	QualityScore  float64   `json:"qualityScore"`
	DexID         string    `json:"dexId"`
	AgeMinutes    int       `json:"ageMinutes"`
	PairCreatedAt time.Time `json:"pairCreatedAt"`
}

// AlertType discriminates price alert trigger conditions.
type AlertType string

const (
	AlertPriceDrop  AlertType = "PRICE_DROP"
	AlertPriceRise  AlertType = "PRICE_RISE"
	AlertVolumeDrop AlertType = "VOLUME_DROP"
)

// Valid reports whether t is one of the known alert types.
func (t AlertType) Valid() bool {
	switch t {
	case AlertPriceDrop, AlertPriceRise, AlertVolumeDrop:
		return true
	}
	return false
}

// PriceAlert is a per-token trigger condition evaluated by the pipeline.
// Once IsActive flips to false (triggered) it never reverts; the only way
// back is delete plus create.
type PriceAlert struct {
	ID            string     `json:"id"`
	TokenAddress  string     `json:"tokenAddress"`
	TokenSymbol   string     `json:"tokenSymbol"`
	AlertType     AlertType  `json:"alertType"`
	Threshold     float64    `json:"threshold"`
	IsActive      bool       `json:"isActive"`
	PeakPrice     float64    `json:"peakPrice"`
	CurrentPrice  float64    `json:"currentPrice"`
	TriggeredAt   *time.Time `json:"triggeredAt,omitempty"`
	TriggerReason string     `json:"triggerReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Triggered reports whether the alert has fired.
func (a PriceAlert) Triggered() bool {
	return !a.IsActive && a.TriggeredAt != nil
}

// ConditionMet reports whether the alert's trigger condition holds for its
// latest price sample. For PRICE_DROP the condition is
// currentPrice <= peakPrice * (1 - threshold/100); a drop of exactly the
// threshold percentage counts. The pipeline performs the authoritative
// evaluation; this mirrors the drop rule for display. Other alert types
// are evaluated remotely only.
func (a PriceAlert) ConditionMet() bool {
	if a.AlertType != AlertPriceDrop || a.PeakPrice <= 0 {
		return false
	}
	return a.CurrentPrice <= a.PeakPrice*(1-a.Threshold/100)
}

// WatchlistEntry is a user's tracked token. AddedPrice is immutable once
// set; PeakPrice never decreases while the entry exists.
type WatchlistEntry struct {
	ID             string    `json:"id"`
	UserEmail      string    `json:"userEmail"`
	TokenAddress   string    `json:"tokenAddress"`
	TokenName      string    `json:"tokenName"`
	TokenSymbol    string    `json:"tokenSymbol"`
	AddedPrice     float64   `json:"addedPrice"`
	PeakPrice      float64   `json:"peakPrice"`
	CurrentPrice   float64   `json:"currentPrice"`
	AlertEnabled   bool      `json:"alertEnabled"`
	AlertThreshold float64   `json:"alertThreshold"`
	AlertInterval  int       `json:"alertInterval"`
	Tags           []string  `json:"tags,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_date"`
}

// PeakGain returns the peak performance of the entry as a percentage of the
// entry price, and false when the figure is undefined.
func (e WatchlistEntry) PeakGain() (float64, bool) {
	if e.AddedPrice <= 0 || e.PeakPrice <= 0 {
		return 0, false
	}
	return (e.PeakPrice - e.AddedPrice) / e.AddedPrice * 100, true
}

// HasTag reports whether the entry carries the given tag.
func (e WatchlistEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SafetyCheck is the pipeline's security verdict for one token.
type SafetyCheck struct {
	TokenAddress        string  `json:"tokenAddress"`
	OverallScore        float64 `json:"overallScore"`
	HoneypotResult      string  `json:"honeypotResult"`
	LiquidityLockResult string  `json:"liquidityLockResult"`
	MintAuthorityResult string  `json:"mintAuthorityResult"`
	RugCheckResult      string  `json:"rugCheckResult"`
}

// User is the authenticated dashboard user.
type User struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}
