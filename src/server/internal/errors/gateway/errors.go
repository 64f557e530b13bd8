package gateway

import (
	"fmt"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-splitter-be/src/server/api_error"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/feedback/errors"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/errors"
	"net/http"
)

var httpStatusCodeMap = map[api.ErrorCode]int{
	api.DefaultErrorCode:                 http.StatusInternalServerError,
	api.TooManyRequestsCode:              http.StatusTooManyRequests,
	api.MalformedRequestCode:             http.StatusBadRequest,
	joberrors.MissingFileCode:            http.StatusBadRequest,
	joberrors.InvalidJobIDCode:           http.StatusBadRequest,
	joberrors.InvalidKeyCode:             http.StatusForbidden,
	joberrors.StorageWriteFailedCode:     http.StatusInternalServerError,
	joberrors.QuotaUnavailableCode:       http.StatusInternalServerError,
	feedbackerrors.EmptyMessageCode:      http.StatusBadRequest,
	feedbackerrors.FeedbackLogFailedCode: http.StatusInternalServerError,
}

func ErrorResponse(c echo.Context, err *api.Error) error {
	statusCode, ok := httpStatusCodeMap[err.ErrorCode]
	if !ok {
		msg := fmt.Sprintf("Error code %s has no HTTP status code mapping", err.ErrorCode)
		panic(msg)
	}

	return c.JSON(statusCode, api_error.JSONAPIError{
		Code:         string(err.ErrorCode),
		Msg:          err.UserMessage,
		ErrorDetails: err.Error(),
	})
}
