package model

import (
	"time"

	"gorm.io/datatypes"
)

/*

Newsletter is a stored record of a generated newsletter, kept for the
history view. Generation itself (prompting, streaming) happens in an
external collaborator; this row only persists its output.

Id: primary key
UserId: owner, issued by the external identity provider

SuggestedTitles / SuggestedSubjectLines / TopAnnouncements: JSON arrays of
	strings produced by the generator
Body: the newsletter body
AdditionalInfo / UserInput: optional free-form context the user supplied
StartDate / EndDate: the article date window this newsletter covered
FeedsUsed: JSON array of the source ids the generation drew from
*/
type Newsletter struct {
	Id                    string `gorm:"primaryKey"`
	CreatedAt             time.Time
	UserId                string `gorm:"index"`
	SuggestedTitles       datatypes.JSON
	SuggestedSubjectLines datatypes.JSON
	Body                  string
	TopAnnouncements      datatypes.JSON
	AdditionalInfo        string
	UserInput             string
	StartDate             time.Time
	EndDate               time.Time
	FeedsUsed             datatypes.JSON
}
