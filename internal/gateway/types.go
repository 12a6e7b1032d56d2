// internal/gateway/types.go
package gateway

import (
	"github.com/novasniper/novadash/internal/types"
)

// AlertAction discriminates the priceAlertSystem remote call.
type AlertAction string

const (
	AlertActionList    AlertAction = "list"
	AlertActionCreate  AlertAction = "create"
	AlertActionDelete  AlertAction = "delete"
	AlertActionMonitor AlertAction = "monitor"
)

// alertRequest is the wire body for every priceAlertSystem call. Unused
// fields are omitted per action.
type alertRequest struct {
	Action       AlertAction     `json:"action"`
	TokenAddress string          `json:"tokenAddress,omitempty"`
	AlertType    types.AlertType `json:"alertType,omitempty"`
	Threshold    float64         `json:"threshold,omitempty"`
}

// MonitoringResult is the server-side evaluation summary returned by the
// monitor action.
type MonitoringResult struct {
	AlertsTriggered int `json:"alertsTriggered"`
	AlertsChecked   int `json:"alertsChecked"`
}

// AlertResponse is the envelope for all priceAlertSystem actions.
type AlertResponse struct {
	Success    bool               `json:"success"`
	Alerts     []types.PriceAlert `json:"alerts,omitempty"`
	Alert      *types.PriceAlert  `json:"alert,omitempty"`
	Monitoring *MonitoringResult  `json:"monitoring,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type fetchTokensRequest struct {
	Category types.FeedCategory `json:"category"`
}

type fetchTokensResponse struct {
	Tokens []types.Token `json:"tokens"`
	Error  string        `json:"error,omitempty"`
}

type phaseResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type safetyRequest struct {
	TokenAddress string `json:"tokenAddress"`
}

type safetyResponse struct {
	Success     bool              `json:"success"`
	SafetyCheck types.SafetyCheck `json:"safetyCheck"`
	Error       string            `json:"error,omitempty"`
}

// WatchlistPatch is a partial update applied to one watchlist entry. Nil
// fields are left untouched server-side.
type WatchlistPatch struct {
	AlertEnabled   *bool     `json:"alertEnabled,omitempty"`
	AlertThreshold *float64  `json:"alertThreshold,omitempty"`
	AlertInterval  *int      `json:"alertInterval,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
}
