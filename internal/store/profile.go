package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tomstout/gifter/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileCols = `p.id, p.user_id, p.family_id, p.role, p.avatar_source, p.avatar_library, p.avatar_upload_key,
	p.birthday, p.anniversary, p.shirt_size, p.pants_size, p.shoe_size,
	p.hobbies, p.favorite_stores, p.favorite_websites, p.private_notes,
	p.is_approved, p.created_at, p.updated_at`

const profileDetailCols = profileCols + `, u.username, u.email, u.first_name, u.last_name, f.name, f.slug`

func scanProfileInto(scanner interface{ Scan(...any) error }, p *model.Profile, extra ...any) error {
	var familyID sql.NullInt64
	var birthday, anniversary sql.NullTime

	dest := []any{
		&p.ID, &p.UserID, &familyID, &p.Role, &p.AvatarSource, &p.AvatarLibrary, &p.AvatarUploadKey,
		&birthday, &anniversary, &p.ShirtSize, &p.PantsSize, &p.ShoeSize,
		&p.Hobbies, &p.FavoriteStores, &p.FavoriteSites, &p.PrivateNotes,
		&p.IsApproved, &p.CreatedAt, &p.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return err
	}

	if familyID.Valid {
		p.FamilyID = &familyID.Int64
	}
	if birthday.Valid {
		p.Birthday = &birthday.Time
	}
	if anniversary.Valid {
		p.Anniversary = &anniversary.Time
	}
	return nil
}

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	if err := scanProfileInto(scanner, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProfileDetail(scanner interface{ Scan(...any) error }) (*model.ProfileDetail, error) {
	var d model.ProfileDetail
	var familyName, familySlug sql.NullString
	err := scanProfileInto(scanner, &d.Profile,
		&d.Username, &d.Email, &d.FirstName, &d.LastName, &familyName, &familySlug)
	if err != nil {
		return nil, err
	}
	d.FamilyName = familyName.String
	d.FamilySlug = familySlug.String
	return &d, nil
}

func (s *ProfileStore) GetByID(id int64) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles p WHERE p.id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) GetByUserID(userID int64) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles p WHERE p.user_id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by user: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) GetDetailByUsername(username string) (*model.ProfileDetail, error) {
	row := s.db.QueryRow(
		`SELECT `+profileDetailCols+`
		 FROM profiles p
		 JOIN users u ON u.id = p.user_id
		 LEFT JOIN families f ON f.id = p.family_id
		 WHERE u.username = ?`,
		username,
	)
	d, err := scanProfileDetail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile detail: %w", err)
	}
	return d, nil
}

// ListApproved returns every approved profile with its account, ordered
// by family then name.
func (s *ProfileStore) ListApproved() ([]model.ProfileDetail, error) {
	rows, err := s.db.Query(
		`SELECT ` + profileDetailCols + `
		 FROM profiles p
		 JOIN users u ON u.id = p.user_id
		 LEFT JOIN families f ON f.id = p.family_id
		 WHERE p.is_approved = 1
		 ORDER BY f.name, u.first_name, u.last_name, u.username`,
	)
	if err != nil {
		return nil, fmt.Errorf("list approved profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.ProfileDetail
	for rows.Next() {
		d, err := scanProfileDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *d)
	}
	return profiles, rows.Err()
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	FamilyID       *int64
	Role           string
	Birthday       *time.Time
	Anniversary    *time.Time
	ShirtSize      string
	PantsSize      string
	ShoeSize       string
	Hobbies        string
	FavoriteStores string
	FavoriteSites  string
}

func (s *ProfileStore) Update(id int64, u ProfileUpdate) (*model.Profile, error) {
	_, err := s.db.Exec(
		`UPDATE profiles SET family_id = ?, role = ?, birthday = ?, anniversary = ?,
		 shirt_size = ?, pants_size = ?, shoe_size = ?,
		 hobbies = ?, favorite_stores = ?, favorite_websites = ?,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		u.FamilyID, u.Role, u.Birthday, u.Anniversary,
		u.ShirtSize, u.PantsSize, u.ShoeSize,
		u.Hobbies, u.FavoriteStores, u.FavoriteSites, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) SetPrivateNotes(id int64, notes string) error {
	_, err := s.db.Exec(
		`UPDATE profiles SET private_notes = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		notes, id,
	)
	if err != nil {
		return fmt.Errorf("set private notes: %w", err)
	}
	return nil
}

// SetAvatar switches the avatar source and stores the value for that
// source. The other sources' fields are cleared so only the live source
// carries data.
func (s *ProfileStore) SetAvatar(id int64, source, library, uploadKey string) (*model.Profile, error) {
	switch source {
	case model.AvatarLibrary:
		uploadKey = ""
	case model.AvatarUpload:
		library = ""
	default:
		library = ""
		uploadKey = ""
	}
	_, err := s.db.Exec(
		`UPDATE profiles SET avatar_source = ?, avatar_library = ?, avatar_upload_key = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		source, library, uploadKey, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set avatar: %w", err)
	}
	return s.GetByID(id)
}

// Approve flips the administrative approval gate.
func (s *ProfileStore) Approve(id int64) error {
	result, err := s.db.Exec(
		`UPDATE profiles SET is_approved = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("approve profile: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}
