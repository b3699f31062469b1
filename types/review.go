package types

import "time"

// ReviewStatus is the lifecycle of a review assignment.
type ReviewStatus string

const (
	ReviewStatusAssigned  ReviewStatus = "assigned"
	ReviewStatusInReview  ReviewStatus = "in_review"
	ReviewStatusCompleted ReviewStatus = "completed"
)

// ReviewPriority orders the review queue.
type ReviewPriority string

const (
	ReviewPriorityLow    ReviewPriority = "low"
	ReviewPriorityNormal ReviewPriority = "normal"
	ReviewPriorityHigh   ReviewPriority = "high"
)

// ReviewAssignment queues an extraction to a reviewer.
type ReviewAssignment struct {
	ID           string         `json:"id"`
	ExtractionID string         `json:"extractionId"`
	ReviewerID   string         `json:"reviewerId"`
	Status       ReviewStatus   `json:"status"`
	Priority     ReviewPriority `json:"priority"`
	AssignedBy   string         `json:"assignedBy"`
	AssignedAt   time.Time      `json:"assignedAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

// ReviewAssignmentCreate is the request body for assigning a review.
type ReviewAssignmentCreate struct {
	ExtractionID string         `json:"extractionId" binding:"required"`
	ReviewerID   string         `json:"reviewerId" binding:"required"`
	Priority     ReviewPriority `json:"priority"`
}

// ReviewerProfile is the subset of the Supabase auth profile needed when
// notifying a reviewer of a new assignment.
type ReviewerProfile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}
