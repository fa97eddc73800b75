package api

import (
	"github.com/gin-gonic/gin"

	"github.com/victornm/ecoquest/internal/gameboard"
)

func (a *API) createGameBoard(c *gin.Context) {
	var req gameboard.DTO
	if !bindJSON(c, &req) {
		return
	}

	_, err := a.bs.Create(c.Request.Context(), req)
	done(c, err)
}

func (a *API) updateGameBoard(c *gin.Context) {
	var req gameboard.DTO
	if !bindJSON(c, &req) {
		return
	}

	done(c, a.bs.Update(c.Request.Context(), req))
}

func (a *API) deleteGameBoard(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	done(c, a.bs.Delete(c.Request.Context(), uri.ID))
}

func (a *API) getGameBoard(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	b, err := a.bs.Get(c.Request.Context(), uri.ID)
	renderJSON(c, b, err)
}

func (a *API) listGameBoards(c *gin.Context) {
	bs, err := a.bs.List(c.Request.Context())
	renderJSON(c, bs, err)
}

func (a *API) listGameBoardsByOwner(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	bs, err := a.bs.ListByOwner(c.Request.Context(), uri.ID)
	renderJSON(c, bs, err)
}

func (a *API) shareGameBoard(c *gin.Context) {
	var uri struct {
		FromUserID  int64 `uri:"fromUserId"`
		GameBoardID int64 `uri:"gameBoardId"`
		ToUserID    int64 `uri:"toUserId"`
	}
	if !bindURI(c, &uri) {
		return
	}

	_, err := a.bs.Share(c.Request.Context(), gameboard.ShareRequest{
		FromUserID:  uri.FromUserID,
		GameBoardID: uri.GameBoardID,
		ToUserID:    uri.ToUserID,
	})
	done(c, err)
}
