package dto

// CreateCommentRequest attaches a comment to an approved review.
type CreateCommentRequest struct {
	ReviewID int64  `json:"review_id" validate:"required,gt=0"`
	Text     string `json:"text" validate:"required"`
}

// UpdateCommentRequest patches comment text.
type UpdateCommentRequest struct {
	Text *string `json:"text,omitempty"`
}
