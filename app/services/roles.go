package services

import "github.com/escomrepo/users-service/app/models"

// Transition classifies what a role change means for the external author
// registry.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionGrantAuthor
	TransitionRevokeAuthor
)

// ClassifyTransition is the single place that decides whether a role change
// requires an integration event. Both signup and update consume it.
func ClassifyTransition(oldRole, newRole string) Transition {
	had := models.HasAuthorRole(oldRole)
	needs := models.HasAuthorRole(newRole)

	switch {
	case !had && needs:
		return TransitionGrantAuthor
	case had && !needs:
		return TransitionRevokeAuthor
	default:
		return TransitionNone
	}
}
