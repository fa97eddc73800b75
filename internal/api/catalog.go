package api

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/victornm/ecoquest/internal/catalog"
	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
)

type ExportProductsRequest struct {
	ProductIDs []int64 `json:"productIds"`
	FileName   string  `json:"fileName" binding:"required"`
}

func (a *API) createProduct(c *gin.Context) {
	var req domain.Product
	if !bindJSON(c, &req) {
		return
	}

	_, err := a.cs.CreateProduct(c.Request.Context(), req)
	done(c, err)
}

func (a *API) updateProduct(c *gin.Context) {
	var req domain.Product
	if !bindJSON(c, &req) {
		return
	}

	done(c, a.cs.UpdateProduct(c.Request.Context(), req))
}

func (a *API) deleteProduct(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	done(c, a.cs.DeleteProduct(c.Request.Context(), uri.ID))
}

func (a *API) deleteQuestion(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	done(c, a.cs.DeleteQuestion(c.Request.Context(), uri.ID))
}

func (a *API) listProducts(c *gin.Context) {
	ps, err := a.cs.ListProducts(c.Request.Context())
	renderJSON(c, ps, err)
}

func (a *API) listProductsByRound(c *gin.Context) {
	var uri struct {
		Round int `uri:"round"`
	}
	if !bindURI(c, &uri) {
		return
	}

	ps, err := a.cs.ListProductsByRound(c.Request.Context(), uri.Round)
	renderJSON(c, ps, err)
}

func (a *API) exportProducts(c *gin.Context) {
	var req ExportProductsRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := a.cs.ExportProducts(c.Request.Context(), catalog.ExportRequest{
		ProductIDs: req.ProductIDs,
		FileName:   req.FileName,
	})
	done(c, err)
}

func (a *API) importProducts(c *gin.Context) {
	up, closeFn, err := upload(c)
	if err != nil {
		renderError(c, err)
		return
	}
	defer closeFn()

	if up == nil {
		done(c, a.cs.ImportProducts(c.Request.Context(), nil))
		return
	}
	done(c, a.cs.ImportProducts(c.Request.Context(), up.Content))
}

func (a *API) createLogo(c *gin.Context) {
	a.withUpload(c, a.cs.CreateLogo)
}

func (a *API) updateLogo(c *gin.Context) {
	a.withUpload(c, a.cs.UpdateLogo)
}

func (a *API) deleteLogo(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	done(c, a.cs.DeleteLogo(c.Request.Context(), uri.ID))
}

func (a *API) createMedia(c *gin.Context) {
	a.withUpload(c, a.cs.CreateMedia)
}

func (a *API) updateMedia(c *gin.Context) {
	a.withUpload(c, a.cs.UpdateMedia)
}

func (a *API) deleteMedia(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	done(c, a.cs.DeleteMedia(c.Request.Context(), uri.ID))
}

func (a *API) withUpload(c *gin.Context, fn func(ctx context.Context, id int64, up *catalog.Upload) error) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	up, closeFn, err := upload(c)
	if err != nil {
		renderError(c, err)
		return
	}
	defer closeFn()

	done(c, fn(c.Request.Context(), uri.ID, up))
}

// upload returns the first file of a multipart request, or nil when the
// request carries none.
func upload(c *gin.Context) (*catalog.Upload, func(), error) {
	noop := func() {}

	form, err := c.MultipartForm()
	if err != nil || form == nil || len(form.File) == 0 {
		return nil, noop, nil
	}

	fields := make([]string, 0, len(form.File))
	for k, fhs := range form.File {
		if len(fhs) > 0 {
			fields = append(fields, k)
		}
	}
	if len(fields) == 0 {
		return nil, noop, nil
	}
	slices.Sort(fields)

	fh := form.File[fields[0]][0]
	f, err := fh.Open()
	if err != nil {
		return nil, noop, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("uploaded file %q cannot be read", fh.Filename),
			errors.WithCause(err),
		)
	}
	return &catalog.Upload{Filename: fh.Filename, Content: f}, func() { _ = f.Close() }, nil
}
