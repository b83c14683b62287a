// README: Intention/keyword store backed by PostgreSQL.
package intent

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"resbot/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) ListIntentions(ctx context.Context, companyID types.ID) ([]Intention, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, company_id, name, priority
        FROM intentions
        WHERE company_id = $1
        ORDER BY priority DESC, name`, string(companyID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intentions []Intention
	index := make(map[types.ID]int)
	for rows.Next() {
		var in Intention
		if err := rows.Scan(&in.ID, &in.CompanyID, &in.Name, &in.Priority); err != nil {
			return nil, err
		}
		index[in.ID] = len(intentions)
		intentions = append(intentions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(intentions) == 0 {
		return nil, nil
	}

	prows, err := s.db.Query(ctx, `
        SELECT p.intention_id, p.value, p.weight, p.match_mode
        FROM intention_patterns p
        JOIN intentions i ON i.id = p.intention_id
        WHERE i.company_id = $1`, string(companyID),
	)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var p Pattern
		if err := prows.Scan(&p.IntentionID, &p.Value, &p.Weight, &p.MatchMode); err != nil {
			return nil, err
		}
		if i, ok := index[p.IntentionID]; ok {
			intentions[i].Patterns = append(intentions[i].Patterns, p)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, err
	}

	erows, err := s.db.Query(ctx, `
        SELECT e.intention_id, e.text
        FROM intention_examples e
        JOIN intentions i ON i.id = e.intention_id
        WHERE i.company_id = $1`, string(companyID),
	)
	if err != nil {
		return nil, err
	}
	defer erows.Close()
	for erows.Next() {
		var ex Example
		if err := erows.Scan(&ex.IntentionID, &ex.Text); err != nil {
			return nil, err
		}
		ex.Tokens = Tokenize(ex.Text)
		if i, ok := index[ex.IntentionID]; ok {
			intentions[i].Examples = append(intentions[i].Examples, ex)
		}
	}
	return intentions, erows.Err()
}

func (s *Store) ListSystemKeywords(ctx context.Context) ([]SystemKeyword, error) {
	rows, err := s.db.Query(ctx, `
        SELECT category, value, weight, match_mode, language
        FROM system_keywords`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SystemKeyword
	for rows.Next() {
		var kw SystemKeyword
		if err := rows.Scan(&kw.Category, &kw.Value, &kw.Weight, &kw.MatchMode, &kw.Language); err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}

// ListServiceKeywords returns global keywords plus the company's own.
func (s *Store) ListServiceKeywords(ctx context.Context, companyID types.ID) ([]ServiceKeyword, error) {
	rows, err := s.db.Query(ctx, `
        SELECT COALESCE(company_id, ''), service_key, value, weight, match_mode
        FROM service_keywords
        WHERE company_id IS NULL OR company_id = $1`, string(companyID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServiceKeyword
	for rows.Next() {
		var kw ServiceKeyword
		if err := rows.Scan(&kw.CompanyID, &kw.ServiceKey, &kw.Value, &kw.Weight, &kw.MatchMode); err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}
