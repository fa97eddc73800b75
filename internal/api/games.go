package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/victornm/ecoquest/internal/game"
)

type (
	GameRequest struct {
		GameID            int64   `json:"gameId"`
		UserID            int64   `json:"userId"`
		Name              string  `json:"name" binding:"required"`
		Message           string  `json:"message" binding:"required"`
		Date              string  `json:"date" binding:"required"`
		State             *string `json:"state"`
		CurrentQuestionID *int64  `json:"currentQuestionId"`
	}

	StateRequest struct {
		GameID            int64   `json:"gameId"`
		State             *string `json:"state"`
		CurrentQuestionID *int64  `json:"currentQuestionId"`
	}

	PlayerRequest struct {
		PlayerID int64           `json:"playerId"`
		Login    string          `json:"login"`
		List     json.RawMessage `json:"list"`
	}
)

func (a *API) createGame(c *gin.Context) {
	var req GameRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := a.gs.CreateGame(c.Request.Context(), game.CreateGameRequest{
		UserID:            req.UserID,
		Name:              req.Name,
		Message:           req.Message,
		Date:              req.Date,
		State:             req.State,
		CurrentQuestionID: req.CurrentQuestionID,
	})
	done(c, err)
}

func (a *API) deleteGame(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	done(c, a.gs.DeleteGame(c.Request.Context(), uri.ID))
}

func (a *API) getGame(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	g, err := a.gs.GetGame(c.Request.Context(), uri.ID)
	renderJSON(c, g, err)
}

func (a *API) listGames(c *gin.Context) {
	gs, err := a.gs.ListGames(c.Request.Context())
	renderJSON(c, gs, err)
}

func (a *API) listGamesByOwner(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	gs, err := a.gs.ListGamesByOwner(c.Request.Context(), uri.ID)
	renderJSON(c, gs, err)
}

func (a *API) updateGame(c *gin.Context) {
	var req GameRequest
	if !bindJSON(c, &req) {
		return
	}

	done(c, a.gs.UpdateGame(c.Request.Context(), game.UpdateGameRequest{
		GameID:            req.GameID,
		UserID:            req.UserID,
		Name:              req.Name,
		Message:           req.Message,
		Date:              req.Date,
		State:             req.State,
		CurrentQuestionID: req.CurrentQuestionID,
	}))
}

func (a *API) updateStateAndQuestion(c *gin.Context) {
	var req StateRequest
	if !bindJSON(c, &req) {
		return
	}

	done(c, a.gs.UpdateStateAndQuestion(c.Request.Context(), game.UpdateStateRequest{
		GameID:            req.GameID,
		State:             req.State,
		CurrentQuestionID: req.CurrentQuestionID,
	}))
}

func (a *API) addPlayer(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	var req PlayerRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := a.gs.AddPlayer(c.Request.Context(), game.AddPlayerRequest{
		GameID: uri.ID,
		Login:  req.Login,
		List:   req.List,
	})
	done(c, err)
}

func (a *API) removePlayer(c *gin.Context) {
	var uri struct {
		GameID   int64 `uri:"gameId"`
		PlayerID int64 `uri:"playerId"`
	}
	if !bindURI(c, &uri) {
		return
	}

	done(c, a.gs.RemovePlayer(c.Request.Context(), uri.GameID, uri.PlayerID))
}

func (a *API) updatePlayer(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	var req PlayerRequest
	if !bindJSON(c, &req) {
		return
	}

	done(c, a.gs.UpdatePlayer(c.Request.Context(), game.UpdatePlayerRequest{
		GameID:   uri.ID,
		PlayerID: req.PlayerID,
		Login:    req.Login,
		List:     req.List,
	}))
}
