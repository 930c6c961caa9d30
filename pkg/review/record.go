package review

// Record is the flattened row persisted for each review. Field order is the
// column order of the output file.
type Record struct {
	RecommendationID         string  `csv:"recommendationid"`
	AppID                    string  `csv:"appid"`
	SteamID                  string  `csv:"steamid"`
	NumGamesOwned            int     `csv:"num_games_owned"`
	NumReviews               int     `csv:"num_reviews"`
	PlaytimeForever          int     `csv:"playtime_forever"`
	PlaytimeLastTwoWeeks     int     `csv:"playtime_last_two_weeks"`
	PlaytimeAtReview         int     `csv:"playtime_at_review"`
	LastPlayed               int64   `csv:"last_played"`
	Language                 string  `csv:"language"`
	Review                   string  `csv:"review"`
	TimestampCreated         int64   `csv:"timestamp_created"`
	TimestampUpdated         int64   `csv:"timestamp_updated"`
	VotedUp                  bool    `csv:"voted_up"`
	VotesUp                  int     `csv:"votes_up"`
	VotesFunny               int     `csv:"votes_funny"`
	WeightedVoteScore        float64 `csv:"weighted_vote_score"`
	CommentCount             int     `csv:"comment_count"`
	SteamPurchase            bool    `csv:"steam_purchase"`
	ReceivedForFree          bool    `csv:"received_for_free"`
	WrittenDuringEarlyAccess bool    `csv:"written_during_early_access"`
	HiddenInSteamChina       bool    `csv:"hidden_in_steam_china"`
	SteamChinaLocation       string  `csv:"steam_china_location"`

	// Cursor is the resume token valid after the page that produced the row.
	Cursor string `csv:"cursor"`

	// TotalReviews is the running total known when the row was written.
	TotalReviews int `csv:"total_reviews"`
}

// Flatten converts a review into a row, stamping the harvest bookkeeping.
func Flatten(appID string, r Review, cursor string, total int) Record {
	return Record{
		RecommendationID:         r.RecommendationID,
		AppID:                    appID,
		SteamID:                  r.Author.SteamID,
		NumGamesOwned:            r.Author.NumGamesOwned,
		NumReviews:               r.Author.NumReviews,
		PlaytimeForever:          r.Author.PlaytimeForever,
		PlaytimeLastTwoWeeks:     r.Author.PlaytimeLastTwoWeeks,
		PlaytimeAtReview:         r.Author.PlaytimeAtReview,
		LastPlayed:               r.Author.LastPlayed,
		Language:                 r.Language,
		Review:                   r.Review,
		TimestampCreated:         r.TimestampCreated,
		TimestampUpdated:         r.TimestampUpdated,
		VotedUp:                  r.VotedUp,
		VotesUp:                  r.VotesUp,
		VotesFunny:               r.VotesFunny,
		WeightedVoteScore:        float64(r.WeightedVoteScore),
		CommentCount:             r.CommentCount,
		SteamPurchase:            r.SteamPurchase,
		ReceivedForFree:          r.ReceivedForFree,
		WrittenDuringEarlyAccess: r.WrittenDuringEarlyAccess,
		HiddenInSteamChina:       r.HiddenInSteamChina,
		SteamChinaLocation:       r.SteamChinaLocation,
		Cursor:                   cursor,
		TotalReviews:             total,
	}
}

// FlattenPage converts every review of p, stamping p.Cursor and total.
func FlattenPage(appID string, p *Page, total int) []Record {
	records := make([]Record, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		records = append(records, Flatten(appID, r, p.Cursor, total))
	}
	return records
}
