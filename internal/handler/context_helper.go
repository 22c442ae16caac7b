package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docuvault/docuvault-api/internal/models"
)

// userIDHeader carries the caller identity resolved by the upstream gateway.
const userIDHeader = "X-User-ID"

func actorFromContext(c *gin.Context) models.Actor {
	userID := strings.TrimSpace(c.GetHeader(userIDHeader))
	if userID == "" {
		userID = "anonymous"
	}
	return models.Actor{UserID: userID, IPAddress: c.ClientIP()}
}
