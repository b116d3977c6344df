package domain

import "time"

// RarityBronze is the only rarity handed out for mastered words.
const RarityBronze = "bronze"

// RewardCard is unlocked when an entry reaches the reward threshold.
// There is at most one card per entry.
type RewardCard struct {
	ID          string
	EntryID     string
	Title       string
	Description string
	ImageRef    string
	Rarity      string
	CreatedAt   time.Time
}

// GalleryCard is a RewardCard joined with its owning entry's translation.
type GalleryCard struct {
	RewardCard
	Translation string
}

// CardChange is the outcome of evaluating the reward policy after an answer.
type CardChange string

const (
	NoChange   CardChange = "no_change"
	CardCreate CardChange = "create"
	CardRemove CardChange = "remove"
)
