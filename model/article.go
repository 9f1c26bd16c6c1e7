package model

import (
	"time"

	"github.com/lib/pq"
)

/*

Article is a deduplicated content item shared across every feed source that
has ever yielded it.

Id: primary key
Guid: identity key derived from the upstream item (guid, falling back to
	link, falling back to sourceId+":"+title). Globally unique across all
	sources and all users: the same article seen through two different users'
	subscriptions collapses into one row.
FeedId: the source through which this article was first seen
Sources: every source that has ever referenced this identity key,
	"many-to-many" relation through article_sources. Append-only except for
	unsubscription cleanup; an article whose last referencing source is
	removed is deleted.

Title / Link / Content / Summary / Author / ImageUrl: descriptive fields
	populated from the first sighting. First-seen content wins, later
	sightings never overwrite.
PubDate: publication timestamp, used for date-range queries
Categories: normalized category strings

SourceCount: computed size of Sources, attached on query for downstream
	importance ranking. Not persisted.
*/
type Article struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	Guid        string `gorm:"uniqueIndex"`
	FeedId      string
	Sources     []*FeedSource `json:"sources" gorm:"many2many:article_sources;"`
	Title       string
	Link        string
	Content     string
	Summary     string
	PubDate     time.Time `gorm:"index"`
	Author      string
	Categories  pq.StringArray `gorm:"type:text[]"`
	ImageUrl    string
	SourceCount int `gorm:"-"`
}
