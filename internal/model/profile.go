package model

import "time"

const (
	RoleParent = "Parent"
	RoleChild  = "Child"
)

// Avatar sources. Exactly one of the source-specific fields carries live
// data; the others are cleared whenever the source changes.
const (
	AvatarDefault = "default"
	AvatarLibrary = "library"
	AvatarUpload  = "upload"
)

type Profile struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	FamilyID        *int64     `json:"family_id"`
	Role            string     `json:"role"`
	AvatarSource    string     `json:"avatar_source"`
	AvatarLibrary   string     `json:"avatar_library,omitempty"`
	AvatarUploadKey string     `json:"avatar_upload_key,omitempty"`
	Birthday        *time.Time `json:"birthday,omitempty"`
	Anniversary     *time.Time `json:"anniversary,omitempty"`
	ShirtSize       string     `json:"shirt_size"`
	PantsSize       string     `json:"pants_size"`
	ShoeSize        string     `json:"shoe_size"`
	Hobbies         string     `json:"hobbies"`
	FavoriteStores  string     `json:"favorite_stores"`
	FavoriteSites   string     `json:"favorite_websites"`
	PrivateNotes    string     `json:"private_notes,omitempty"`
	IsApproved      bool       `json:"is_approved"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (p *Profile) IsParent() bool {
	return p.Role == RoleParent
}

// SameFamilyAs reports whether both profiles belong to the same family.
// Profiles without a family are never in the same family, including
// with each other.
func (p *Profile) SameFamilyAs(other *Profile) bool {
	return p.FamilyID != nil && other.FamilyID != nil && *p.FamilyID == *other.FamilyID
}

// AvatarConsistent reports whether the field matching the avatar source
// actually carries data. A default avatar is always consistent.
func (p *Profile) AvatarConsistent() bool {
	switch p.AvatarSource {
	case AvatarLibrary:
		return p.AvatarLibrary != ""
	case AvatarUpload:
		return p.AvatarUploadKey != ""
	default:
		return true
	}
}

// IsComplete reports whether the profile is ready for approval review:
// the account has a first name, last name and email, and the avatar
// configuration is consistent.
func IsComplete(u *User, p *Profile) bool {
	if u.FirstName == "" || u.LastName == "" || u.Email == "" {
		return false
	}
	return p.AvatarConsistent()
}

// ProfileDetail is a profile joined with its account and family for
// list and detail responses.
type ProfileDetail struct {
	Profile
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	FamilyName string `json:"family_name,omitempty"`
	FamilySlug string `json:"family_slug,omitempty"`
}
