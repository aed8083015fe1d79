// Package dto holds the request and response shapes of the v1 API.
package dto

// PaginationQuery carries the shared paging parameters.
type PaginationQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

// PageResponse wraps one page of results.
type PageResponse struct {
	Items    any   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// MessageResponse answers operations that return no entity.
type MessageResponse struct {
	Message string `json:"message"`
}
