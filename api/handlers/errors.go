package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/jdamiba/twitter-clone/services"

	"github.com/gin-gonic/gin"
)

func statusOf(kind services.Kind) int {
	switch kind {
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindNotFound, services.KindNotFoundOrUnauthorized:
		return http.StatusNotFound
	case services.KindInvalidArgument, services.KindInvalidOperation:
		return http.StatusBadRequest
	case services.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError пишет ответ с кодом, соответствующим классу ошибки.
// Детали внутренних ошибок в ответ не попадают, только в лог.
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := statusOf(kind)
	msg := "Internal server error"
	if kind != services.KindInternal {
		var e *services.Error
		if errors.As(err, &e) {
			msg = e.Message
		}
	}
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// parsePage: отсутствующий или некорректный номер страницы означает первую
func parsePage(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page <= 0 {
		return 1
	}
	return page
}
