package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/briefmux/briefmux/feed"
	"github.com/briefmux/briefmux/model"
	"github.com/briefmux/briefmux/utils"
	Logger "github.com/briefmux/briefmux/utils/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultNewsletterPageSize = 20
	maxNewsletterPageSize     = 100
)

// Handler exposes the feed lifecycle, article preparation and newsletter
// history over HTTP. Owner identity comes from the "sub" header injected by
// the auth delegation middleware; every query is scoped to it here, since
// authorization is explicitly the surface's job, not the core's.
type Handler struct {
	DB    *gorm.DB
	Feeds *feed.Service
}

func NewHandler(db *gorm.DB, feeds *feed.Service) *Handler {
	return &Handler{DB: db, Feeds: feeds}
}

func ownerID(c *gin.Context) string {
	return c.Request.Header.Get("sub")
}

type addSourceRequest struct {
	Url string `json:"url" binding:"required"`
}

func (h *Handler) AddSource(c *gin.Context) {
	var req addSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Feeds.AddSource(c.Request.Context(), ownerID(c), req.Url)
	if errors.Is(err, feed.ErrInvalidSource) {
		c.JSON(http.StatusBadRequest, gin.H{"error": feed.ErrInvalidSource.Error()})
		return
	}
	if err != nil {
		Logger.Log.Errorf("failed to add source: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add source"})
		return
	}
	c.JSON(http.StatusCreated, result)
}

type sourceWithCount struct {
	model.FeedSource
	ArticleCount int64 `json:"articleCount"`
}

func (h *Handler) ListSources(c *gin.Context) {
	var sources []sourceWithCount
	err := h.DB.Model(&model.FeedSource{}).
		Select("feed_sources.*, COUNT(article_sources.article_id) AS article_count").
		Joins("LEFT JOIN article_sources ON article_sources.source_id = feed_sources.id").
		Where("feed_sources.user_id = ?", ownerID(c)).
		Group("feed_sources.id").
		Order("feed_sources.created_at DESC").
		Find(&sources).Error
	if err != nil {
		Logger.Log.Errorf("failed to list sources: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sources"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (h *Handler) RemoveSource(c *gin.Context) {
	sourceID := c.Param("id")
	if !h.ownsSources(c, []string{sourceID}) {
		return
	}
	if err := h.Feeds.RemoveSource(sourceID); err != nil {
		Logger.Log.Errorf("failed to remove source %s: %s", sourceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove source"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type prepareRequest struct {
	SourceIds []string  `json:"sourceIds" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

func (h *Handler) PrepareArticles(c *gin.Context) {
	var req prepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.ownsSources(c, req.SourceIds) {
		return
	}

	prepared, err := h.Feeds.PrepareArticles(c.Request.Context(), req.SourceIds, req.StartDate, req.EndDate)
	if errors.Is(err, feed.ErrNoContent) {
		c.JSON(http.StatusNotFound, gin.H{"error": feed.ErrNoContent.Error()})
		return
	}
	if err != nil {
		Logger.Log.Errorf("failed to prepare articles: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare articles"})
		return
	}
	c.JSON(http.StatusOK, prepared)
}

// ownsSources aborts with 403 unless every requested source id belongs to
// the requesting owner.
func (h *Handler) ownsSources(c *gin.Context, sourceIDs []string) bool {
	var count int64
	err := h.DB.Model(&model.FeedSource{}).
		Where("id IN ? AND user_id = ?", sourceIDs, ownerID(c)).
		Count(&count).Error
	if err != nil {
		Logger.Log.Errorf("failed to check source ownership: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check source ownership"})
		return false
	}
	if count != int64(len(sourceIDs)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "source does not belong to the requesting user"})
		return false
	}
	return true
}

type createNewsletterRequest struct {
	SuggestedTitles       []string  `json:"suggestedTitles"`
	SuggestedSubjectLines []string  `json:"suggestedSubjectLines"`
	Body                  string    `json:"body" binding:"required"`
	TopAnnouncements      []string  `json:"topAnnouncements"`
	AdditionalInfo        string    `json:"additionalInfo"`
	UserInput             string    `json:"userInput"`
	StartDate             time.Time `json:"startDate" binding:"required"`
	EndDate               time.Time `json:"endDate" binding:"required"`
	FeedsUsed             []string  `json:"feedsUsed"`
}

// CreateNewsletter persists the output of the external generation step for
// the history view.
func (h *Handler) CreateNewsletter(c *gin.Context) {
	var req createNewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newsletter := model.Newsletter{
		Id:                    uuid.New().String(),
		UserId:                ownerID(c),
		SuggestedTitles:       mustJSON(req.SuggestedTitles),
		SuggestedSubjectLines: mustJSON(req.SuggestedSubjectLines),
		Body:                  req.Body,
		TopAnnouncements:      mustJSON(req.TopAnnouncements),
		AdditionalInfo:        req.AdditionalInfo,
		UserInput:             req.UserInput,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		FeedsUsed:             mustJSON(req.FeedsUsed),
	}
	if err := h.DB.Create(&newsletter).Error; err != nil {
		Logger.Log.Errorf("failed to create newsletter: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create newsletter"})
		return
	}
	c.JSON(http.StatusCreated, newsletter)
}

func (h *Handler) ListNewsletters(c *gin.Context) {
	limit := defaultNewsletterPageSize
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = utils.Min(v, maxNewsletterPageSize)
	}
	skip := 0
	if v, err := strconv.Atoi(c.Query("skip")); err == nil && v > 0 {
		skip = v
	}

	var newsletters []model.Newsletter
	err := h.DB.Where("user_id = ?", ownerID(c)).
		Order("created_at DESC").
		Limit(limit).
		Offset(skip).
		Find(&newsletters).Error
	if err != nil {
		Logger.Log.Errorf("failed to list newsletters: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list newsletters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"newsletters": newsletters})
}

func (h *Handler) GetNewsletter(c *gin.Context) {
	var newsletter model.Newsletter
	err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), ownerID(c)).First(&newsletter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "newsletter not found"})
		return
	}
	if err != nil {
		Logger.Log.Errorf("failed to fetch newsletter: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch newsletter"})
		return
	}
	c.JSON(http.StatusOK, newsletter)
}

func (h *Handler) DeleteNewsletter(c *gin.Context) {
	res := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), ownerID(c)).Delete(&model.Newsletter{})
	if res.Error != nil {
		Logger.Log.Errorf("failed to delete newsletter: %s", res.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete newsletter"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "newsletter not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func mustJSON(v interface{}) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}
