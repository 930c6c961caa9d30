package harvest

import (
	"github.com/Sternrassler/steam-review-harvester/pkg/review"
)

// Filter returns a copy of page holding only the reviews whose key is not in
// seen, in their original order. A key repeated inside the page is kept once.
// Neither page nor seen is modified.
func Filter(page *review.Page, seen review.KeySet) *review.Page {
	out := &review.Page{
		Success:      page.Success,
		Cursor:       page.Cursor,
		TotalReviews: page.TotalReviews,
		NumReviews:   page.NumReviews,
		Reviews:      make([]review.Review, 0, len(page.Reviews)),
	}

	inPage := make(review.KeySet, len(page.Reviews))
	for _, r := range page.Reviews {
		if seen.Has(r.RecommendationID) || inPage.Has(r.RecommendationID) {
			continue
		}
		inPage.Add(r.RecommendationID)
		out.Reviews = append(out.Reviews, r)
	}

	return out
}
