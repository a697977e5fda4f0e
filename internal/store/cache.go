// Package store keeps the most recent ledger snapshots in an in-memory
// SQLite database. Nothing is written to disk: the mirror is rebuilt from
// the ledger on every start.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/theirongolddev/chainfund/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache holds the latest campaigns, donations, and loans.
type Cache struct {
	db *sql.DB
}

// OpenMemory creates an empty in-memory cache.
func OpenMemory() (*Cache, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(secs int64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

// ReplaceCampaigns swaps the stored campaign list for cs. Donations of
// campaigns no longer listed are dropped with them.
func (c *Cache) ReplaceCampaigns(cs []model.CampaignSnapshot, fetchedAt time.Time) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM campaigns WHERE id >= ?", len(cs)); err != nil {
		return err
	}
	for _, s := range cs {
		claimed := 0
		if s.Claimed {
			claimed = 1
		}
		_, err = tx.Exec(`INSERT INTO campaigns
			(id, owner, title, description, target, amount_collected, deadline, image, claimed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				owner = excluded.owner, title = excluded.title, description = excluded.description,
				target = excluded.target, amount_collected = excluded.amount_collected,
				deadline = excluded.deadline, image = excluded.image, claimed = excluded.claimed`,
			s.ID, s.Owner, s.Title, s.Description, s.Target, s.AmountCollected,
			unixOrZero(s.Deadline), s.Image, claimed,
		)
		if err != nil {
			return err
		}
	}

	if err := markFetched(tx, "campaigns", fetchedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceDonations swaps the stored donations of one campaign for ds.
func (c *Cache) ReplaceDonations(campaignID int, ds []model.Donation) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM donations WHERE campaign_id = ?", campaignID); err != nil {
		return err
	}
	for i, d := range ds {
		_, err = tx.Exec(`INSERT INTO donations (campaign_id, seq, donor, amount) VALUES (?, ?, ?, ?)`,
			campaignID, i, d.Donor, d.Amount)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceLoans swaps the stored loan list for ls.
func (c *Cache) ReplaceLoans(ls []model.LoanSnapshot, fetchedAt time.Time) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM loans"); err != nil {
		return err
	}
	for _, l := range ls {
		_, err = tx.Exec(`INSERT INTO loans
			(id, borrower, purpose, amount, interest_rate_bps, duration_secs,
			 start_time, end_time, amount_repaid, total_contributed, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.Borrower, l.Purpose, l.Amount, l.InterestRate, l.DurationSecs,
			unixOrZero(l.StartTime), unixOrZero(l.EndTime), l.AmountRepaid, l.TotalContributed, int(l.Status),
		)
		if err != nil {
			return err
		}
	}

	if err := markFetched(tx, "loans", fetchedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func markFetched(tx *sql.Tx, name string, at time.Time) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO sync_state (name, fetched_at) VALUES (?, ?)`, name, at.Unix())
	return err
}

// FetchedAt returns when name ("campaigns" or "loans") was last replaced.
func (c *Cache) FetchedAt(name string) (time.Time, bool, error) {
	var secs int64
	err := c.db.QueryRow("SELECT fetched_at FROM sync_state WHERE name = ?", name).Scan(&secs)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(secs, 0).UTC(), true, nil
}

const campaignColumns = `id, owner, title, description, target, amount_collected, deadline, image, claimed`

func scanCampaigns(rows *sql.Rows) ([]model.CampaignSnapshot, error) {
	defer func() { _ = rows.Close() }()

	var out []model.CampaignSnapshot
	for rows.Next() {
		var s model.CampaignSnapshot
		var deadline int64
		var claimed int
		if err := rows.Scan(&s.ID, &s.Owner, &s.Title, &s.Description, &s.Target,
			&s.AmountCollected, &deadline, &s.Image, &claimed); err != nil {
			return nil, err
		}
		s.Deadline = timeOrZero(deadline)
		s.Claimed = claimed != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// Campaigns returns every stored campaign ordered by id.
func (c *Cache) Campaigns() ([]model.CampaignSnapshot, error) {
	rows, err := c.db.Query("SELECT " + campaignColumns + " FROM campaigns ORDER BY id")
	if err != nil {
		return nil, err
	}
	return scanCampaigns(rows)
}

// CampaignsByOwner returns the stored campaigns owned by owner.
func (c *Cache) CampaignsByOwner(owner string) ([]model.CampaignSnapshot, error) {
	if owner == "" {
		return nil, nil
	}
	rows, err := c.db.Query("SELECT "+campaignColumns+" FROM campaigns WHERE owner = ? ORDER BY id", owner)
	if err != nil {
		return nil, err
	}
	return scanCampaigns(rows)
}

// Campaign returns stored campaign id, or ok=false if it is not stored.
func (c *Cache) Campaign(id int) (model.CampaignSnapshot, bool, error) {
	rows, err := c.db.Query("SELECT "+campaignColumns+" FROM campaigns WHERE id = ?", id)
	if err != nil {
		return model.CampaignSnapshot{}, false, err
	}
	cs, err := scanCampaigns(rows)
	if err != nil || len(cs) == 0 {
		return model.CampaignSnapshot{}, false, err
	}
	return cs[0], true, nil
}

// Donations returns the stored donations of campaign id in ledger order.
func (c *Cache) Donations(campaignID int) ([]model.Donation, error) {
	rows, err := c.db.Query(`SELECT donor, amount FROM donations WHERE campaign_id = ? ORDER BY seq`, campaignID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Donation
	for rows.Next() {
		d := model.Donation{CampaignID: campaignID}
		if err := rows.Scan(&d.Donor, &d.Amount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const loanColumns = `id, borrower, purpose, amount, interest_rate_bps, duration_secs,
	start_time, end_time, amount_repaid, total_contributed, status`

func scanLoans(rows *sql.Rows) ([]model.LoanSnapshot, error) {
	defer func() { _ = rows.Close() }()

	var out []model.LoanSnapshot
	for rows.Next() {
		var l model.LoanSnapshot
		var start, end int64
		var status int
		if err := rows.Scan(&l.ID, &l.Borrower, &l.Purpose, &l.Amount, &l.InterestRate, &l.DurationSecs,
			&start, &end, &l.AmountRepaid, &l.TotalContributed, &status); err != nil {
			return nil, err
		}
		l.StartTime = timeOrZero(start)
		l.EndTime = timeOrZero(end)
		l.Status = model.LoanStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Loans returns every stored loan ordered by id.
func (c *Cache) Loans() ([]model.LoanSnapshot, error) {
	rows, err := c.db.Query("SELECT " + loanColumns + " FROM loans ORDER BY id")
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

// LoansByBorrower returns the stored loans requested by borrower.
func (c *Cache) LoansByBorrower(borrower string) ([]model.LoanSnapshot, error) {
	if borrower == "" {
		return nil, nil
	}
	rows, err := c.db.Query("SELECT "+loanColumns+" FROM loans WHERE borrower = ? ORDER BY id", borrower)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

// Loan returns stored loan id, or ok=false if it is not stored.
func (c *Cache) Loan(id int64) (model.LoanSnapshot, bool, error) {
	rows, err := c.db.Query("SELECT "+loanColumns+" FROM loans WHERE id = ?", id)
	if err != nil {
		return model.LoanSnapshot{}, false, err
	}
	ls, err := scanLoans(rows)
	if err != nil || len(ls) == 0 {
		return model.LoanSnapshot{}, false, err
	}
	return ls[0], true, nil
}

// Counts returns the number of stored campaigns and loans.
func (c *Cache) Counts() (campaigns, loans int, err error) {
	err = c.db.QueryRow("SELECT (SELECT COUNT(*) FROM campaigns), (SELECT COUNT(*) FROM loans)").Scan(&campaigns, &loans)
	return campaigns, loans, err
}
