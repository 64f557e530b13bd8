package jobgateway

import (
	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/gateway"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/entity"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/errors"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/usecase"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/identity"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/request"
	"net/http"
)

const (
	fileField   = "file"
	apiKeyField = "api_key"
	handleQuery = "file"
)

type Gateway struct {
	usecase jobusecase.Usecase
}

func NewGateway(usecase jobusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

type SubmitResponse struct {
	FileName  string   `json:"filename"`
	JobID     string   `json:"job_id"`
	BaseName  string   `json:"base_name"`
	Stems     []string `json:"stems"`
	Unlocked  bool     `json:"unlocked"`
	Remaining int      `json:"remaining_free_uses"`
}

type BlockedResponse struct {
	Blocked bool `json:"blocked"`
}

func (g Gateway) Submit(c echo.Context) error {
	ctx := request.Context(c)

	fileHeader, err := c.FormFile(fileField)
	if err != nil || fileHeader.Filename == "" {
		if err == nil {
			err = errors.New("Uploaded file has no name")
		}
		apiErr := api.CommitError(errors.Wrap(err, "No file in upload form"),
			joberrors.MissingFileCode,
			"No file uploaded")
		return gateway.ErrorResponse(c, apiErr)
	}

	file, err := fileHeader.Open()
	if err != nil {
		apiErr := api.CommitError(errors.Wrap(err, "Failed to open uploaded file"),
			joberrors.MissingFileCode,
			"The uploaded file could not be read")
		return gateway.ErrorResponse(c, apiErr)
	}
	defer file.Close()

	contentType := fileHeader.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}

	submission, apiErr := g.usecase.Submit(ctx, identity.FromContext(c), c.FormValue(apiKeyField), jobusecase.Upload{
		FileName:    fileHeader.Filename,
		Content:     file,
		Size:        fileHeader.Size,
		ContentType: contentType,
	})
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	if submission.Blocked {
		return c.JSON(http.StatusOK, BlockedResponse{Blocked: true})
	}

	return c.JSON(http.StatusOK, SubmitResponse{
		FileName:  submission.Job.ID,
		JobID:     submission.Job.ID,
		BaseName:  submission.Job.BaseName,
		Stems:     g.usecase.Stems().Names,
		Unlocked:  submission.Unlocked,
		Remaining: submission.Remaining,
	})
}

type StatusResponse struct {
	Status jobentity.Status  `json:"status"`
	Files  map[string]string `json:"files,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func (g Gateway) Status(c echo.Context) error {
	ctx := request.Context(c)

	result, apiErr := g.usecase.Poll(ctx, c.QueryParam(handleQuery))
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	switch result.Status {
	case jobentity.DoneStatus:
		return c.JSON(http.StatusOK, StatusResponse{Status: result.Status, Files: result.Files})
	case jobentity.PendingStatus:
		return c.JSON(http.StatusAccepted, StatusResponse{Status: result.Status})
	default:
		return c.JSON(http.StatusInternalServerError, StatusResponse{Status: result.Status, Error: result.Detail})
	}
}

type useKeyRequest struct {
	Key string `json:"key"`
}

type UseKeyResponse struct {
	Unlocked bool `json:"unlocked"`
}

func (g Gateway) UseKey(c echo.Context) error {
	ctx := request.Context(c)

	body := useKeyRequest{}
	if err := c.Bind(&body); err != nil {
		apiErr := api.CommitError(errors.Wrap(err, "Failed to bind use key request"),
			api.MalformedRequestCode,
			"The request body was malformed")
		return gateway.ErrorResponse(c, apiErr)
	}

	if apiErr := g.usecase.UseKey(ctx, identity.FromContext(c), body.Key); apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, UseKeyResponse{Unlocked: true})
}
