package services

import (
	"testing"

	"github.com/escomrepo/users-service/app/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyTransition(t *testing.T) {
	cases := []struct {
		oldRole string
		newRole string
		want    Transition
	}{
		{models.RoleGeneral, models.RoleAuthor, TransitionGrantAuthor},
		{models.RoleGeneral, models.RoleAdmin, TransitionGrantAuthor},
		{models.RoleAuthor, models.RoleGeneral, TransitionRevokeAuthor},
		{models.RoleAdmin, models.RoleGeneral, TransitionRevokeAuthor},
		// Admin already counts as author; moving between the two crosses nothing.
		{models.RoleAuthor, models.RoleAdmin, TransitionNone},
		{models.RoleAdmin, models.RoleAuthor, TransitionNone},
		{models.RoleGeneral, models.RoleGeneral, TransitionNone},
		{models.RoleAuthor, models.RoleAuthor, TransitionNone},
	}

	for _, tc := range cases {
		got := ClassifyTransition(tc.oldRole, tc.newRole)
		assert.Equal(t, tc.want, got, "%s -> %s", tc.oldRole, tc.newRole)
	}
}
