package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StandardResponse is the unified response envelope
type StandardResponse struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// MatchmakingError is the structured error shape consumed by game clients.
// Its fields must stay stable; the launcher branches on errorCode strings.
type MatchmakingError struct {
	ErrorCode        string   `json:"errorCode"`
	ErrorMessage     string   `json:"errorMessage"`
	MessageVars      []string `json:"messageVars"`
	NumericErrorCode int      `json:"numericErrorCode"`
	OriginatingError string   `json:"originatingService"`
	Intent           string   `json:"intent"`
}

// ReplySuccess sends a 200 OK with message only
func ReplySuccess(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, StandardResponse{Code: 0, Msg: msg})
}

// ReplySuccessWithData sends a 200 OK with message and data payload
func ReplySuccessWithData(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, StandardResponse{Code: 0, Msg: msg, Data: data})
}

// ReplyBadRequest sends a 400 Bad Request with error message
func ReplyBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, StandardResponse{Code: 400, Msg: msg})
}

// ReplyUnauthorized sends a 401 Unauthorized with error message
func ReplyUnauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, StandardResponse{Code: 401, Msg: msg})
}

// ReplyNotFound sends a 404 Not Found with error message
func ReplyNotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, StandardResponse{Code: 404, Msg: msg})
}

// ReplyError500 sends a 500 Internal Server Error with error message
func ReplyError500(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, StandardResponse{Code: 500, Msg: msg})
}

// ReplyMatchmakingError sends a structured matchmaking error with the given
// HTTP status, in the shape the game client expects.
func ReplyMatchmakingError(c *gin.Context, status int, errorCode, errorMessage, intent string, numericCode int) {
	c.JSON(status, MatchmakingError{
		ErrorCode:        errorCode,
		ErrorMessage:     errorMessage,
		MessageVars:      []string{},
		NumericErrorCode: numericCode,
		OriginatingError: "momentum-matchmaking",
		Intent:           intent,
	})
}
