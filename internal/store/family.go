package store

import (
	"database/sql"
	"fmt"

	"github.com/tomstout/gifter/internal/model"
	"github.com/tomstout/gifter/internal/slug"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	var p1, p2 sql.NullInt64
	err := scanner.Scan(&f.ID, &f.Name, &f.Slug, &p1, &p2, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	if p1.Valid {
		f.Parent1ID = &p1.Int64
	}
	if p2.Valid {
		f.Parent2ID = &p2.Int64
	}
	return &f, nil
}

const familyCols = `id, name, slug, parent1_id, parent2_id, created_at`

// Create inserts a family with a slug derived from the name. On slug
// collision a numeric suffix is appended until the slug is unique.
func (s *FamilyStore) Create(name string) (*model.Family, error) {
	base := slug.Make(name)
	if base == "" {
		base = "family"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	candidate := base
	for n := 1; ; n++ {
		var count int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM families WHERE slug = ?`, candidate).Scan(&count); err != nil {
			return nil, fmt.Errorf("check slug: %w", err)
		}
		if count == 0 {
			break
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}

	result, err := tx.Exec(`INSERT INTO families (name, slug) VALUES (?, ?)`, name, candidate)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) GetBySlug(slug string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE slug = ?`, slug)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family by slug: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) List() ([]model.Family, error) {
	rows, err := s.db.Query(`SELECT ` + familyCols + ` FROM families ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}

// AssignParentSlot seats userID in the family's first open parent slot,
// parent1 before parent2, and returns the slot number (1 or 2) or 0 for
// a no-op (both slots full, or the user already seated).
//
// Both UPDATEs carry their precondition in the WHERE clause and run in
// one write transaction, so two concurrent registrations into the same
// family cannot land in the same slot and a user can never hold both.
func (s *FamilyStore) AssignParentSlot(familyID, userID int64) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE families SET parent1_id = ?
		 WHERE id = ? AND parent1_id IS NULL AND (parent2_id IS NULL OR parent2_id != ?)`,
		userID, familyID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("assign parent1: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	} else if n == 1 {
		return 1, tx.Commit()
	}

	result, err = tx.Exec(
		`UPDATE families SET parent2_id = ?
		 WHERE id = ? AND parent2_id IS NULL AND (parent1_id IS NULL OR parent1_id != ?)`,
		userID, familyID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("assign parent2: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	} else if n == 1 {
		return 2, tx.Commit()
	}

	return 0, tx.Commit()
}

// ClearParentSlot releases any slot held by userID across all families.
// The slot becomes open again; the family itself is untouched.
func (s *FamilyStore) ClearParentSlot(userID int64) error {
	if _, err := s.db.Exec(`UPDATE families SET parent1_id = NULL WHERE parent1_id = ?`, userID); err != nil {
		return fmt.Errorf("clear parent1: %w", err)
	}
	if _, err := s.db.Exec(`UPDATE families SET parent2_id = NULL WHERE parent2_id = ?`, userID); err != nil {
		return fmt.Errorf("clear parent2: %w", err)
	}
	return nil
}

// Members returns the family's profiles joined with their accounts,
// parents first, then by name.
func (s *FamilyStore) Members(familyID int64) ([]model.ProfileDetail, error) {
	rows, err := s.db.Query(
		`SELECT `+profileDetailCols+`
		 FROM profiles p
		 JOIN users u ON u.id = p.user_id
		 LEFT JOIN families f ON f.id = p.family_id
		 WHERE p.family_id = ?
		 ORDER BY CASE p.role WHEN 'Parent' THEN 0 ELSE 1 END, u.first_name, u.last_name, u.username`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	defer rows.Close()

	var members []model.ProfileDetail
	for rows.Next() {
		d, err := scanProfileDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *d)
	}
	return members, rows.Err()
}
