package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SubscriptionRequired is the body sent when a route needs a valid subscription
type SubscriptionRequired struct {
	Message              string `json:"message"`
	RequiresSubscription bool   `json:"requiresSubscription"`
}

// MessageOnly is the body for internal errors; it never carries detail
type MessageOnly struct {
	Message string `json:"message"`
}

// Success returns a success response
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Message: "success",
		Data:    data,
	}
}

// Error returns an error response
func Error(message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// JSON sends a JSON response
func JSON(c *gin.Context, statusCode int, response Response) {
	c.JSON(statusCode, response)
}

// SuccessJSON sends a success JSON response
func SuccessJSON(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, Success(data))
}

// ErrorJSON sends an error JSON response
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	JSON(c, statusCode, Error(message))
}

// AbortSubscriptionRequired stops the chain with 401 and requiresSubscription
func AbortSubscriptionRequired(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, SubscriptionRequired{
		Message:              message,
		RequiresSubscription: true,
	})
}

// AbortInternal stops the chain with a generic 500
func AbortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, MessageOnly{Message: "Internal server error"})
}
