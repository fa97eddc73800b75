package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/ecoquest/internal/catalog"
	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/event"
	"github.com/victornm/ecoquest/internal/filestore"
	"github.com/victornm/ecoquest/internal/game"
	"github.com/victornm/ecoquest/internal/gameboard"
	"github.com/victornm/ecoquest/internal/identity"
	"github.com/victornm/ecoquest/internal/statistic"
	"github.com/victornm/ecoquest/internal/user"
)

type Config struct {
	EventBus   *event.Bus
	Users      *user.Service
	Games      *game.Service
	GameBoards *gameboard.Service
	Catalog    *catalog.Service
	Statistics *statistic.Service
	Files      *filestore.Store
	Token      identity.TokenConfig

	Redis        Redis
	PubsubPrefix string

	Now func() time.Time
}

// Redis is the part of a Redis client used for live game notifications.
type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type API struct {
	us  *user.Service
	gs  *game.Service
	bs  *gameboard.Service
	cs  *catalog.Service
	ss  *statistic.Service
	fs  *filestore.Store
	tok identity.TokenConfig
	now func() time.Time

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		us:     c.Users,
		gs:     c.Games,
		bs:     c.GameBoards,
		cs:     c.Catalog,
		ss:     c.Statistics,
		fs:     c.Files,
		tok:    c.Token,
		now:    c.Now,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}
	if a.now == nil {
		a.now = time.Now
	}

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameGameStateUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishGameStateUpdated(ctx, e.(domain.EventGameStateUpdated))
	})
	c.EventBus.Subscribe(domain.EventNameGameDeleted, func(ctx context.Context, e event.Event) error {
		return a.PublishGameDeleted(ctx, e.(domain.EventGameDeleted))
	})

	return a
}

// Register mounts every route on r.
func (a *API) Register(r gin.IRouter) {
	r.POST("/authentication/login/master", a.loginMaster)
	r.POST("/authentication/login/player", a.loginPlayer)

	g := r.Group("/game")
	g.POST("/create", a.authorize(staff), a.createGame)
	g.DELETE("/delete/:id", a.authorize(staff), a.deleteGame)
	g.GET("/get/:id", a.authorize(inGame), a.getGame)
	g.GET("/get/all", a.authorize(staff), a.listGames)
	g.GET("/get/all/:id", a.authorize(staff), a.listGamesByOwner)
	g.POST("/state/players/create/:id", a.authorize(inGame), a.addPlayer)
	g.DELETE("/state/players/delete/:gameId/:playerId", a.authorize(inGame), a.removePlayer)
	g.POST("/state/players/update/:id", a.authorize(inGame), a.updatePlayer)
	g.POST("/update", a.authorize(staff), a.updateGame)
	g.POST("/update/stateAndQuestion", a.authorize(staff), a.updateStateAndQuestion)
	g.GET("/live/:id", a.authorize(inGame), a.liveGame)

	gb := r.Group("/gameBoard", a.authorize(staff))
	gb.POST("/create", a.createGameBoard)
	gb.DELETE("/delete/:id", a.deleteGameBoard)
	gb.GET("/get/:id", a.getGameBoard)
	gb.GET("/get/all", a.listGameBoards)
	gb.GET("/get/all/:id", a.listGameBoardsByOwner)
	gb.POST("/share/:fromUserId/:gameBoardId/:toUserId", a.shareGameBoard)
	gb.POST("/update", a.updateGameBoard)

	p := r.Group("/product")
	p.POST("/create", a.authorize(admin), a.createProduct)
	p.POST("/export", a.authorize(admin), a.exportProducts)
	p.DELETE("/delete/:id", a.authorize(admin), a.deleteProduct)
	p.GET("/get/all", a.authorize(staff), a.listProducts)
	p.GET("/get/all/:round", a.authorize(staff), a.listProductsByRound)
	p.POST("/import", a.authorize(admin), a.importProducts)
	p.POST("/logo/create/:id", a.authorize(admin), a.createLogo)
	p.DELETE("/logo/delete/:id", a.authorize(admin), a.deleteLogo)
	p.POST("/logo/update/:id", a.authorize(admin), a.updateLogo)
	p.POST("/update", a.authorize(admin), a.updateProduct)

	q := r.Group("/question", a.authorize(admin))
	q.DELETE("/delete/:id", a.deleteQuestion)
	q.POST("/media/create/:id", a.createMedia)
	q.DELETE("/media/delete/:id", a.deleteMedia)
	q.POST("/media/update/:id", a.updateMedia)

	st := r.Group("/statistic", a.authorize(staff))
	st.POST("/create", a.createStatistic)
	st.POST("/export", a.exportStatistics)

	u := r.Group("/user")
	u.POST("/create", a.createUser)
	u.DELETE("/delete/:id", a.authorize(admin), a.deleteUser)
	u.GET("/get/activeMasters", a.authorize(admin), a.listActiveMasters)
	u.GET("/get/inactiveMasters", a.authorize(admin), a.listInactiveMasters)
	u.POST("/toActiveMaster/:id", a.authorize(admin), a.toActiveMaster)
	u.POST("/toInactiveMaster/:id", a.authorize(admin), a.toInactiveMaster)
	u.POST("/update/info", a.authorize(members), a.updateUserInfo)
	u.POST("/update/password", a.authorize(members), a.updatePassword)
	u.POST("/update/password/reset", a.authorize(admin), a.resetPassword)

	r.GET("/files/:name", a.downloadFile)
}
