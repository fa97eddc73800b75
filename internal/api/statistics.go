package api

import (
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/statistic"
)

func (a *API) createStatistic(c *gin.Context) {
	var req statistic.CreateRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := a.ss.Create(c.Request.Context(), req)
	done(c, err)
}

func (a *API) exportStatistics(c *gin.Context) {
	var req statistic.ExportRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := a.ss.Export(c.Request.Context(), req)
	done(c, err)
}

// downloadFile serves logos, media and exported workbooks.
func (a *API) downloadFile(c *gin.Context) {
	name := c.Param("name")

	ok, err := a.fs.Exists(name)
	if err != nil || !ok {
		renderError(c, errors.NotFound("file %q not found", name))
		return
	}

	f, err := a.fs.Open(name)
	if err != nil {
		renderError(c, err)
		return
	}
	defer f.Close()

	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Header("Content-Type", ct)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, f); err != nil {
		_ = c.Error(err)
	}
}
