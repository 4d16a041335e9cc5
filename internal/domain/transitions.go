package domain

import "fmt"

var candidateTransitions = map[CandidateStatus][]CandidateStatus{
	CandidatePending:    {CandidateProcessing, CandidateDiscarded},
	CandidateProcessing: {CandidateDone, CandidatePending, CandidateDiscarded},
}

var approvalTransitions = map[ApprovalStatus][]ApprovalStatus{
	ApprovalPending:   {ApprovalApprovedA, ApprovalApprovedB, ApprovalRejected},
	ApprovalApprovedA: {ApprovalPublished},
	ApprovalApprovedB: {ApprovalPublished},
}

// CheckCandidateTransition validates a queue status change.
func CheckCandidateTransition(from, to CandidateStatus) error {
	for _, next := range candidateTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("candidate %s -> %s: %w", from, to, ErrIllegalTransition)
}

// CheckApprovalTransition validates an approval status change.
func CheckApprovalTransition(from, to ApprovalStatus) error {
	for _, next := range approvalTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("approval %s -> %s: %w", from, to, ErrIllegalTransition)
}
