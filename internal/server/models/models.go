// Package models holds the storage-facing row types. Wire shapes live in
// internal/shared/models; these carry the extra columns the API never sends.
package models

import "time"

type Admin struct {
	ID           int64
	UUID         string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Member struct {
	ID            int64
	UUID          string
	Username      string
	Tier          string
	CurrentPoints int64
	LoginCode     string
	CreatedAt     time.Time
}

type SpinItem struct {
	ID          int64
	UUID        string
	RewardName  string
	Probability float64
	Unlimited   bool
	Quantity    int64
	Image       string
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SpinSequence struct {
	ID        int64
	UUID      string
	ItemOrder int64
	ItemUUID  string
	CreatedAt time.Time
}

// SpinRecord is one draw outcome kept for auditing.
type SpinRecord struct {
	ID         int64
	MemberUUID string
	ItemUUID   string
	RewardName string
	CreatedAt  time.Time
}
