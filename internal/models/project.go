package models

// Project mirrors the portfolio app's project rows. This service never writes
// them outside of tests and seeding; it only checks existence and lists the
// grading backlog.
type Project struct {
	ID        string `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	Author    string `db:"author" json:"author"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}
