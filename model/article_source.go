package model

import (
	"time"
)

/*

ArticleSource is the "many-to-many" relation between a deduplicated Article
and the FeedSources that have referenced it.

ArticleId: article id
SourceId: feed source id
CreatedAt: time when the reference was first recorded

The composite primary key is what makes the merge append idempotent: a
second sighting of the same (article, source) pair inserts with ON CONFLICT
DO NOTHING and changes nothing.
*/
type ArticleSource struct {
	ArticleId string `gorm:"primaryKey"`
	SourceId  string `gorm:"primaryKey"`
	CreatedAt time.Time
}
