package api

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/victornm/ecoquest/internal/errors"
)

// Failure is the body of every unsuccessful response.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func renderError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), Failure{Kind: e.Kind(), Message: e.Message})
}

// done answers a mutation: an empty 200 or the failure.
func done(c *gin.Context, err error) {
	if err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func renderJSON(c *gin.Context, v any, err error) {
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("%s", bindMessage(err)),
			errors.WithCause(err),
		))
		return false
	}
	return true
}

// bindURI fails with NotFound, as a path that does not parse matches no route.
func bindURI(c *gin.Context, req any) bool {
	if err := c.ShouldBindUri(req); err != nil {
		renderError(c, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no route for %s", c.Request.URL.Path),
			errors.WithCause(err),
		))
		return false
	}
	return true
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		v := verrs[0]
		if v.Tag() == "required" {
			return fmt.Sprintf("field %s is required", v.Field())
		}
		return fmt.Sprintf("field %s does not satisfy %s", v.Field(), v.Tag())
	}
	return "request body is not valid JSON"
}

type idURI struct {
	ID int64 `uri:"id"`
}
