// Package review defines the Steam review data model: the JSON shapes returned
// by the appreviews API, the flattened CSV record persisted per app, and the
// page envelope passed between the fetcher, the dedup filter and the store.
package review

import (
	"encoding/json"
	"strconv"
)

// StartCursor is the resume token that denotes the start of the sequence.
const StartCursor = "*"

// Author holds the reviewer statistics embedded in a review.
type Author struct {
	SteamID              string `json:"steamid"`
	NumGamesOwned        int    `json:"num_games_owned"`
	NumReviews           int    `json:"num_reviews"`
	PlaytimeForever      int    `json:"playtime_forever"`
	PlaytimeLastTwoWeeks int    `json:"playtime_last_two_weeks"`
	PlaytimeAtReview     int    `json:"playtime_at_review"`
	LastPlayed           int64  `json:"last_played"`
}

// Review is one review as returned by the appreviews endpoint.
type Review struct {
	RecommendationID         string `json:"recommendationid"`
	Author                   Author `json:"author"`
	Language                 string `json:"language"`
	Review                   string `json:"review"`
	TimestampCreated         int64  `json:"timestamp_created"`
	TimestampUpdated         int64  `json:"timestamp_updated"`
	VotedUp                  bool   `json:"voted_up"`
	VotesUp                  int    `json:"votes_up"`
	VotesFunny               int    `json:"votes_funny"`
	WeightedVoteScore        Score  `json:"weighted_vote_score"`
	CommentCount             int    `json:"comment_count"`
	SteamPurchase            bool   `json:"steam_purchase"`
	ReceivedForFree          bool   `json:"received_for_free"`
	WrittenDuringEarlyAccess bool   `json:"written_during_early_access"`
	HiddenInSteamChina       bool   `json:"hidden_in_steam_china"`
	SteamChinaLocation       string `json:"steam_china_location"`
}

// Score is the weighted vote score. Steam sends it either as a JSON number
// or as a numeric string ("0.52380955219268799").
type Score float64

// UnmarshalJSON accepts both number and string encodings.
func (s *Score) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "" {
			*s = 0
			return nil
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*s = Score(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Score(f)
	return nil
}

// Page is the result of a single fetch.
type Page struct {
	// Success is false when the transport failed or the API reported failure.
	Success bool

	// Cursor is the resume token for the next request.
	Cursor string

	// TotalReviews is the total-count hint. Steam only sends it with the
	// first page of a sequence; 0 means unknown.
	TotalReviews int

	// NumReviews is the number of reviews the server reports for this page.
	NumReviews int

	// Reviews is the raw page content in server order.
	Reviews []Review
}

// Failed returns a page that carries no data and Success=false.
func Failed() *Page {
	return &Page{Success: false}
}

// Keys returns the record keys of the page in order.
func (p *Page) Keys() []string {
	keys := make([]string, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		keys = append(keys, r.RecommendationID)
	}
	return keys
}

// KeySet is a set of record keys.
type KeySet map[string]struct{}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether key is in the set.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add inserts keys into the set.
func (s KeySet) Add(keys ...string) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}
