package user

import (
	"slices"
	"time"
)

const (
	RoleProjectOwner  = "project-owner"
	RoleAdministrator = "administrator"
)

type User struct {
	ID         uint32    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	SecretKey  string    `json:"-"`
	Roles      []string  `json:"roles"`
	AvatarPath string    `json:"-"`
	AvatarMime string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Actor is the authenticated identity of one request.
type Actor struct {
	ID        uint32
	SessionID string
	Roles     []string
}

func NewActor(u *User, sessionID string) *Actor {
	return &Actor{ID: u.ID, SessionID: sessionID, Roles: slices.Clone(u.Roles)}
}

func (a *Actor) ActorID() uint32 {
	if a == nil {
		return 0
	}
	return a.ID
}

func (a *Actor) HasRole(role string) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.Roles, role)
}

// RefKind tells which field of a Ref is set.
type RefKind int

const (
	RefByID RefKind = iota + 1
	RefByEmail
	RefDerived
)

// ContentKind is the kind of content a derived reference points at.
type ContentKind int

const (
	ContentProject ContentKind = iota + 1
	ContentMessage
)

// Ref identifies a user directly, by email, or through the author of a project or message.
type Ref struct {
	Kind   RefKind
	ID     uint32
	Email  string
	From   ContentKind
	FromID uint32
}

func ByID(id uint32) Ref {
	return Ref{Kind: RefByID, ID: id}
}

func ByEmail(email string) Ref {
	return Ref{Kind: RefByEmail, Email: email}
}

func FromProject(projectID uint32) Ref {
	return Ref{Kind: RefDerived, From: ContentProject, FromID: projectID}
}

func FromMessage(messageID uint32) Ref {
	return Ref{Kind: RefDerived, From: ContentMessage, FromID: messageID}
}
