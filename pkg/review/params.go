package review

import (
	"net/url"
	"strconv"
)

// MaxPageSize is the largest num_per_page the API honours.
const MaxPageSize = 100

// QueryParams is the fixed request configuration sent with every page
// request. A cursor is only meaningful together with the params that
// produced it.
type QueryParams struct {
	Language     string
	Filter       string
	ReviewType   string
	PurchaseType string
	NumPerPage   int
}

// DefaultQueryParams returns the parameters used when nothing is configured.
// The filter must be "recent" or "updated" for stable cursor paging.
func DefaultQueryParams() QueryParams {
	return QueryParams{
		Language:     "english",
		Filter:       "recent",
		ReviewType:   "all",
		PurchaseType: "all",
		NumPerPage:   MaxPageSize,
	}
}

// Values encodes the params plus cursor as URL query values.
func (q QueryParams) Values(cursor string) url.Values {
	v := url.Values{}
	v.Set("json", "1")
	v.Set("language", q.Language)
	v.Set("filter", q.Filter)
	v.Set("review_type", q.ReviewType)
	v.Set("purchase_type", q.PurchaseType)
	v.Set("num_per_page", strconv.Itoa(q.NumPerPage))
	v.Set("cursor", cursor)
	return v
}
