package word

import (
	"time"

	"github.com/lib/pq"
)

// Word is one vocabulary card. (user_id, word) is unique per user.
type Word struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Nickname  *string   `json:"nickname,omitempty" db:"nickname"`
	Word      string    `json:"word" db:"word"`
	IsPublic  bool      `json:"is_public" db:"is_public"`
	State     State     `json:"word_state" db:"word_state"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Context   *string   `json:"context,omitempty" db:"context"`
	AudioURL  *string   `json:"audio_url,omitempty" db:"audio_url"`

	// Translations ride along on the ADD_WORD payload and listing reads;
	// they live in their own table.
	Translations map[string]string `json:"translations,omitempty" db:"-"`
}

// Translation is one translation row for a word.
type Translation struct {
	WordID       int64  `json:"word_id" db:"word_id"`
	Translation  string `json:"translation" db:"translation"`
	PartOfSpeech string `json:"part_of_speech" db:"part_of_speech"`
}

// PublicWord is one public search hit.
type PublicWord struct {
	UserID    int64     `json:"user_id" db:"user_id"`
	Nickname  string    `json:"nickname" db:"nickname"`
	Word      string    `json:"word" db:"word"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Stats holds per-part-of-speech counts for one user's words. Missing
// categories count as zero.
type Stats struct {
	Total      int `json:"total" db:"-"`
	Nouns      int `json:"nouns" db:"nouns"`
	Verbs      int `json:"verbs" db:"verbs"`
	Adjectives int `json:"adjectives" db:"adjectives"`
	Adverbs    int `json:"adverbs" db:"adverbs"`
	Others     int `json:"others" db:"others"`
}

func (s *Stats) fillTotal() {
	s.Total = s.Nouns + s.Verbs + s.Adjectives + s.Adverbs + s.Others
}

// DueWords is the due-for-review selection for one user.
type DueWords struct {
	UserID int64          `db:"user_id"`
	Words  pq.StringArray `db:"words"`
}
