package user_test

import (
	"project-submission/internal/model/user"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserModel(t *testing.T) {
	t.Run("User struct fields", func(t *testing.T) {
		u := user.User{
			ID:        1,
			Username:  "testuser",
			Email:     "test@example.com",
			Password:  "hashedpassword",
			SecretKey: "abc123",
			Roles:     []string{user.RoleProjectOwner},
		}

		assert.Equal(t, uint32(1), u.ID)
		assert.Equal(t, "testuser", u.Username)
		assert.True(t, u.HasRole(user.RoleProjectOwner))
		assert.False(t, u.HasRole(user.RoleAdministrator))
	})

	t.Run("Actor copies roles", func(t *testing.T) {
		u := &user.User{ID: 7, Roles: []string{user.RoleAdministrator}}
		a := user.NewActor(u, "sid")
		u.Roles[0] = "subscriber"

		assert.Equal(t, uint32(7), a.ActorID())
		assert.Equal(t, "sid", a.SessionID)
		assert.True(t, a.HasRole(user.RoleAdministrator))
	})

	t.Run("Nil actor has no identity", func(t *testing.T) {
		var a *user.Actor
		assert.Equal(t, uint32(0), a.ActorID())
		assert.False(t, a.HasRole(user.RoleAdministrator))
	})
}

func TestRefConstructors(t *testing.T) {
	assert.Equal(t, user.Ref{Kind: user.RefByID, ID: 3}, user.ByID(3))
	assert.Equal(t, user.Ref{Kind: user.RefByEmail, Email: "a@b.co"}, user.ByEmail("a@b.co"))
	assert.Equal(t, user.Ref{Kind: user.RefDerived, From: user.ContentProject, FromID: 42}, user.FromProject(42))
	assert.Equal(t, user.Ref{Kind: user.RefDerived, From: user.ContentMessage, FromID: 9}, user.FromMessage(9))
}
