package models

import "time"

// TokenResponse is the body returned by the login and refresh endpoints.
// RefreshToken may be omitted on refresh, in which case the client keeps
// the one it already has.
type TokenResponse struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh,omitempty"`
}

// LuckySpinItem is a reward slot on the wheel. An unlimited item carries
// Quantity == 0; a limited item carries Quantity > 0.
type LuckySpinItem struct {
	ID          int64   `json:"id"`
	UUID        string  `json:"uuid"`
	RewardName  string  `json:"reward_name"`
	Probability float64 `json:"probability"`
	Unlimited   bool    `json:"unlimited"`
	Quantity    int64   `json:"quantity"`
	Image       string  `json:"image,omitempty"`
	Archived    bool    `json:"archived"`
}

// SpinSequence fixes the position of an item on the wheel.
type SpinSequence struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	ItemOrder int64  `json:"item_order"`
	ItemUUID  string `json:"item_uuid"`
	ItemName  string `json:"item_name"`
}

// Member is a loyalty program participant.
type Member struct {
	ID            int64  `json:"id"`
	UUID          string `json:"uuid"`
	Username      string `json:"username"`
	Tier          string `json:"tier"`
	CurrentPoints int64  `json:"current_points"`
	LoginCode     string `json:"login_code,omitempty"`
}

// SpinResult is what a member won on a single draw. It is ephemeral and is
// never persisted client-side beyond in-memory history.
type SpinResult struct {
	UUID       string `json:"uuid"`
	RewardName string `json:"reward_name"`
	Image      string `json:"image,omitempty"`
}

// Admin is a dashboard operator account.
type Admin struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
