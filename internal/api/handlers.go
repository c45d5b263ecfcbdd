package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulsefeed/pulsefeed/internal/database"
	"github.com/pulsefeed/pulsefeed/internal/feed"
)

// Handler holds the dependencies needed to service HTTP requests.
type Handler struct {
	feeds     database.FeedStore
	items     database.ItemStore
	processor *feed.Processor
}

func NewHandler(feeds database.FeedStore, items database.ItemStore, processor *feed.Processor) *Handler {
	return &Handler{feeds: feeds, items: items, processor: processor}
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "pulsefeed",
		"endpoints": gin.H{
			"feeds":  "GET /feeds, POST /feeds?url=, DELETE /feeds?url=",
			"items":  "GET /items?q=&limit=&offset=",
			"health": "GET /health",
		},
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.feeds.ListFeeds()
	if err != nil {
		slog.Error("failed to list feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list feeds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"feeds": feeds, "total": len(feeds)})
}

// AddFeed subscribes to a new feed by fetching it immediately so the
// caller learns right away whether the URL is reachable and parseable.
func (h *Handler) AddFeed(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url query parameter"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	result, err := h.processor.ProcessFeed(ctx, url, time.Now())
	if err != nil {
		slog.Warn("failed to add feed", "url", url, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch or parse feed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"finalUrl": result.FinalURL,
		"inserted": result.Inserted,
	})
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url query parameter"})
		return
	}

	if err := h.feeds.DeleteFeed(url); err != nil {
		slog.Error("failed to delete feed", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete feed"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) SearchItems(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q query parameter"})
		return
	}

	limit := clampInt(parseIntOrDefault(c.Query("limit"), 20), 1, 100)
	offset := maxInt(parseIntOrDefault(c.Query("offset"), 0), 0)

	results, err := h.items.SearchItems(query, limit, offset)
	if err != nil {
		slog.Error("search failed", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": results, "total": len(results)})
}

func parseIntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
