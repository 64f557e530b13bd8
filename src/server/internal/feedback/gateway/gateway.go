package feedbackgateway

import (
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/gateway"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/feedback/usecase"
	"net/http"
)

const messageField = "message"

type Gateway struct {
	usecase feedbackusecase.Usecase
}

func NewGateway(usecase feedbackusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

type Response struct {
	Received bool `json:"received"`
}

func (g Gateway) Submit(c echo.Context) error {
	if apiErr := g.usecase.Submit(c.FormValue(messageField)); apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, Response{Received: true})
}
