package api

import (
	"github.com/gin-gonic/gin"

	"github.com/victornm/ecoquest/internal/user"
)

type (
	LoginMasterRequest struct {
		Login    string `json:"login" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	LoginPlayerRequest struct {
		GameID int64  `json:"gameId"`
		Login  string `json:"login" binding:"required"`
	}
)

func (a *API) loginMaster(c *gin.Context) {
	var req LoginMasterRequest
	if !bindJSON(c, &req) {
		return
	}

	sess, err := a.us.LoginMaster(c.Request.Context(), req.Login, req.Password)
	renderJSON(c, sess, err)
}

func (a *API) loginPlayer(c *gin.Context) {
	var req LoginPlayerRequest
	if !bindJSON(c, &req) {
		return
	}

	sess, err := a.us.LoginPlayer(c.Request.Context(), req.GameID, req.Login)
	renderJSON(c, sess, err)
}

func (a *API) createUser(c *gin.Context) {
	var req user.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := a.us.CreateUser(c.Request.Context(), req)
	done(c, err)
}

func (a *API) deleteUser(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	done(c, a.us.DeleteUser(c.Request.Context(), uri.ID))
}

func (a *API) listActiveMasters(c *gin.Context) {
	us, err := a.us.ListActiveMasters(c.Request.Context())
	renderJSON(c, us, err)
}

func (a *API) listInactiveMasters(c *gin.Context) {
	us, err := a.us.ListInactiveMasters(c.Request.Context())
	renderJSON(c, us, err)
}

func (a *API) toActiveMaster(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	done(c, a.us.ToActiveMaster(c.Request.Context(), uri.ID))
}

func (a *API) toInactiveMaster(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}

	done(c, a.us.ToInactiveMaster(c.Request.Context(), uri.ID))
}

func (a *API) updateUserInfo(c *gin.Context) {
	var req user.UpdateUserInfoRequest
	if !bindJSON(c, &req) {
		return
	}

	done(c, a.us.UpdateUserInfo(c.Request.Context(), req))
}

func (a *API) updatePassword(c *gin.Context) {
	var req user.UpdatePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	done(c, a.us.UpdatePassword(c.Request.Context(), req))
}

func (a *API) resetPassword(c *gin.Context) {
	var req user.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	done(c, a.us.ResetPassword(c.Request.Context(), req))
}
