package review

import (
	"encoding/json"
	"fmt"
)

// ParseError reports a response body that is not valid JSON or lacks a
// required field.
type ParseError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse page: field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("parse page: missing field %q", e.Field)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

type querySummary struct {
	NumReviews   *int `json:"num_reviews"`
	TotalReviews int  `json:"total_reviews"`
}

type pageResponse struct {
	Success      *int          `json:"success"`
	Cursor       *string       `json:"cursor"`
	QuerySummary *querySummary `json:"query_summary"`
	Reviews      []Review      `json:"reviews"`
}

// ParsePage decodes an appreviews response body.
// A body with success != 1 yields a failed page and no error; required
// fields of a successful body are validated.
func ParsePage(body []byte) (*Page, error) {
	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Field: "body", Err: err}
	}

	if resp.Success == nil {
		return nil, &ParseError{Field: "success"}
	}
	if *resp.Success != 1 {
		return Failed(), nil
	}

	if resp.Cursor == nil {
		return nil, &ParseError{Field: "cursor"}
	}
	if resp.QuerySummary == nil {
		return nil, &ParseError{Field: "query_summary"}
	}
	if resp.QuerySummary.NumReviews == nil {
		return nil, &ParseError{Field: "query_summary.num_reviews"}
	}
	if resp.Reviews == nil {
		return nil, &ParseError{Field: "reviews"}
	}
	for i, r := range resp.Reviews {
		if r.RecommendationID == "" {
			return nil, &ParseError{Field: fmt.Sprintf("reviews[%d].recommendationid", i)}
		}
	}

	return &Page{
		Success:      true,
		Cursor:       *resp.Cursor,
		TotalReviews: resp.QuerySummary.TotalReviews,
		NumReviews:   *resp.QuerySummary.NumReviews,
		Reviews:      resp.Reviews,
	}, nil
}
