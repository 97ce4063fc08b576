package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// ContactSearch holds the terms a contact lookup matches on. A contact matches
// when its name contains any NameTerm (case-insensitive), or any of its phone
// numbers equals a Phone, or any of its emails equals an Email (case-insensitive).
type ContactSearch struct {
	NameTerms []string
	Phones    []string
	Emails    []string
}

// IsEmpty reports whether the search has no terms.
func (s ContactSearch) IsEmpty() bool {
	return len(s.NameTerms) == 0 && len(s.Phones) == 0 && len(s.Emails) == 0
}

// ContactRepository provides read access to address-book entries.
type ContactRepository interface {
	ListRecent(ctx context.Context, scope models.DeviceScope, limit int) ([]*models.Contact, error)
	Search(ctx context.Context, scope models.DeviceScope, search ContactSearch, limit int) ([]*models.Contact, error)
	ListAll(ctx context.Context, scope models.DeviceScope, limit int) ([]*models.Contact, error)
	Count(ctx context.Context, scope models.DeviceScope) (int, error)
}

type contactRepository struct{}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository() ContactRepository {
	return &contactRepository{}
}

var _ ContactRepository = (*contactRepository)(nil)

func (r *contactRepository) ListRecent(ctx context.Context, scope models.DeviceScope, limit int) ([]*models.Contact, error) {
	return r.list(ctx, scope, &where{}, clampLimit(limit, 100))
}

func (r *contactRepository) ListAll(ctx context.Context, scope models.DeviceScope, limit int) ([]*models.Contact, error) {
	return r.list(ctx, scope, &where{}, clampLimit(limit, 20000))
}

func (r *contactRepository) Search(ctx context.Context, scope models.DeviceScope, search ContactSearch, limit int) ([]*models.Contact, error) {
	if search.IsEmpty() {
		return []*models.Contact{}, nil
	}

	w := &where{}
	var clauses []string
	for _, term := range search.NameTerms {
		w.args = append(w.args, "%"+escapeLike(term)+"%")
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", len(w.args)))
	}
	if len(search.Phones) > 0 {
		w.args = append(w.args, search.Phones)
		clauses = append(clauses, fmt.Sprintf("phone_numbers && $%d::text[]", len(w.args)))
	}
	if len(search.Emails) > 0 {
		lowered := make([]string, len(search.Emails))
		for i, e := range search.Emails {
			lowered[i] = strings.ToLower(e)
		}
		w.args = append(w.args, lowered)
		clauses = append(clauses, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(emails) e WHERE lower(e) = ANY($%d::text[]))", len(w.args)))
	}
	w.conditions = append(w.conditions, "("+strings.Join(clauses, " OR ")+")")

	return r.list(ctx, scope, w, clampLimit(limit, 50))
}

func (r *contactRepository) list(ctx context.Context, scope models.DeviceScope, w *where, limit int) ([]*models.Contact, error) {
	if scope.IsEmpty() {
		return []*models.Contact{}, nil
	}

	dbScope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	w.devices("device_id", scope)

	query := fmt.Sprintf(`
		SELECT id, device_id, name, phone_numbers, emails, organization, notes
		FROM contacts
		WHERE %s
		ORDER BY lower(name), id
		%s`, w.String(), w.limit(limit))

	rows, err := dbScope.Conn.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	contacts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Contact, error) {
		var c models.Contact
		err := row.Scan(&c.ID, &c.DeviceID, &c.Name, &c.PhoneNumbers, &c.Emails, &c.Organization, &c.Notes)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan contacts: %w", err)
	}
	if contacts == nil {
		contacts = []*models.Contact{}
	}
	return contacts, nil
}

func (r *contactRepository) Count(ctx context.Context, scope models.DeviceScope) (int, error) {
	if scope.IsEmpty() {
		return 0, nil
	}

	dbScope, err := scopeFrom(ctx)
	if err != nil {
		return 0, err
	}

	w := &where{}
	w.devices("device_id", scope)

	var n int
	if err := dbScope.Conn.QueryRow(ctx, "SELECT COUNT(*) FROM contacts WHERE "+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return n, nil
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
