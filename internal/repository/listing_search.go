package repository

import (
	"context"
	"strings"
)

// ListingSearchQuery defines filters & pagination for searching the
// public catalog.
type ListingSearchQuery struct {
	Query       string
	Category    string
	MaxPriceINR float64
	TrialOnly   bool
	Page        int
	PageSize    int
}

// ListingSearchRow is the flattened public projection of a search hit,
// enriched with the number of upcoming scheduled sessions.
type ListingSearchRow struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Category         string  `json:"category"`
	PartnerName      string  `json:"partner_name"`
	BasePriceINR     float64 `json:"base_price_inr"`
	TrialAvailable   bool    `json:"trial_available"`
	TrialPriceINR    float64 `json:"trial_price_inr"`
	UpcomingSessions int     `json:"upcoming_sessions"`
}

func (r *ListingRepo) Search(ctx context.Context, q ListingSearchQuery) ([]ListingSearchRow, int64, error) {
	where := []string{"l.is_active = TRUE"}
	args := []any{}

	if q.Query != "" {
		where = append(where, "(LOWER(l.title) LIKE ? OR LOWER(l.description) LIKE ?)")
		needle := "%" + strings.ToLower(q.Query) + "%"
		args = append(args, needle, needle)
	}
	if q.Category != "" {
		where = append(where, "l.category = ?")
		args = append(args, strings.ToLower(q.Category))
	}
	if q.MaxPriceINR > 0 {
		where = append(where, "l.base_price_inr <= ?")
		args = append(args, q.MaxPriceINR)
	}
	if q.TrialOnly {
		where = append(where, "l.trial_available = TRUE")
	}

	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM listings l WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
			l.id,
			l.title,
			l.category,
			COALESCE(u.name, '') AS partner_name,
			l.base_price_inr,
			l.trial_available,
			l.trial_price_inr,
			(SELECT COUNT(*) FROM sessions s
				WHERE s.listing_id = l.id
				  AND s.status = 'scheduled'
				  AND s.start_at > NOW()) AS upcoming_sessions
		FROM listings l
		LEFT JOIN users u ON u.id = l.partner_id
		WHERE ` + cond + `
		ORDER BY l.created_at DESC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]ListingSearchRow, 0, limit)
	for rows.Next() {
		var d ListingSearchRow
		if err := rows.Scan(
			&d.ID,
			&d.Title,
			&d.Category,
			&d.PartnerName,
			&d.BasePriceINR,
			&d.TrialAvailable,
			&d.TrialPriceINR,
			&d.UpcomingSessions,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
