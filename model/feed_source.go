package model

import (
	"time"
)

/*

FeedSource is a data model for a single user's subscription to an RSS/Atom
feed URL.

Id: primary key, use to identify a feed source
CreatedAt: time when entity is created
UpdatedAt: time when entity is last mutated (metadata refresh included)
UserId: owner of this subscription, issued by the external identity provider

Url: canonical feed URL. Deliberately NOT unique: two users subscribing to
the same URL own two independent rows. The rows only coordinate through the
by-URL freshness aggregation on LastFetched, never by sharing the record.

Title / Description / Link / ImageUrl / Language: display metadata, empty
until the first successful fetch populates them.

LastFetched: timestamp of the last successful fetch for this row, nil before
the first success. Only ever set to "now" after a fetch completes, so it is
monotonically non-decreasing.
*/
type FeedSource struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserId      string `gorm:"index"`
	Url         string `gorm:"index"`
	Title       string
	Description string
	Link        string
	ImageUrl    string
	Language    string
	LastFetched *time.Time `gorm:"index"`
}
