package domain

import "strings"

// Status is the health of a SKU's projected stock.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

var statusRank = map[Status]int{
	StatusOK:       0,
	StatusWarning:  1,
	StatusCritical: 2,
}

// Rank orders statuses by severity.
func (s Status) Rank() int {
	return statusRank[s]
}

// ParseStatus returns the status for a label (case-insensitive).
func ParseStatus(label string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(label)))
	_, ok := statusRank[s]
	return s, ok
}

// ApprovalStatus is the lifecycle state of an approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ParseApprovalStatus returns the approval status for a label
// (case-insensitive).
func ParseApprovalStatus(label string) (ApprovalStatus, bool) {
	switch s := ApprovalStatus(strings.ToLower(strings.TrimSpace(label))); s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return s, true
	}
	return "", false
}

// CanTransition reports whether a request may move from s to next. Only
// pending requests can be decided, and a decision is final.
func (s ApprovalStatus) CanTransition(next ApprovalStatus) bool {
	return s == ApprovalPending && (next == ApprovalApproved || next == ApprovalRejected)
}
