package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer wires the feed and search endpoints, plus operational
// /health and /metrics endpoints, into a gin engine.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	r.GET("/", handler.Root)
	r.GET("/feeds", handler.ListFeeds)
	r.POST("/feeds", handler.AddFeed)
	r.DELETE("/feeds", handler.DeleteFeed)
	r.GET("/items", handler.SearchItems)
	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func requestLogger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		return p.ClientIP + " " + p.Method + " " + p.Path + " " +
			strconv.Itoa(p.StatusCode) + " " + p.Latency.String() + "\n"
	})
}
