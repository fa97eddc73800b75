package domain

import (
	"github.com/shopspring/decimal"
)

const (
	RoleAdmin  = "admin"
	RoleMaster = "master"
	RolePlayer = "player"

	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is an admin or a game master. Players are never stored as users.
type User struct {
	UserID     int64  `json:"userId"`
	LastName   string `json:"lastName"`
	FirstName  string `json:"firstName"`
	Patronymic string `json:"patronymic"`
	Login      string `json:"login"`
	Password   string `json:"password,omitempty"`
	Role       string `json:"role,omitempty"`
	Status     string `json:"status,omitempty"`
}

func (u *User) IsActiveMaster() bool {
	return u.Role == RoleMaster && u.Status == StatusActive
}

// Game is a live game. State is an opaque JSON document, see package gamestate.
type Game struct {
	GameID            int64   `json:"gameId"`
	UserID            int64   `json:"userId"`
	Name              string  `json:"name"`
	Message           string  `json:"message"`
	Date              string  `json:"date"`
	State             *string `json:"state"`
	CurrentQuestionID *int64  `json:"currentQuestionId,omitempty"`
}

const (
	QuestionTypeText            = "TEXT"
	QuestionTypeTextWithAnswers = "TEXT_WITH_ANSWERS"
	QuestionTypeAuction         = "AUCTION"
	QuestionTypeMedia           = "MEDIA"
)

func ValidQuestionType(t string) bool {
	switch t {
	case QuestionTypeText, QuestionTypeTextWithAnswers, QuestionTypeAuction, QuestionTypeMedia:
		return true
	}
	return false
}

type Product struct {
	ProductID int64      `json:"productId"`
	Colour    string     `json:"colour"`
	Name      string     `json:"name"`
	Round     int        `json:"round"`
	Logo      *string    `json:"logo"`
	Questions []Question `json:"questions"`
}

type Question struct {
	QuestionID   int64   `json:"questionId"`
	Answers      *string `json:"answers"`
	Type         *string `json:"type"`
	ShortText    *string `json:"shortText"`
	Text         *string `json:"text"`
	ProductID    int64   `json:"productId"`
	Media        *string `json:"media"`
	LastEditDate string  `json:"lastEditDate"`
}

func (q *Question) IsMedia() bool {
	return q.Type != nil && *q.Type == QuestionTypeMedia
}

// QuestionAnswers is the document stored in Question.Answers.
type QuestionAnswers struct {
	AllAnswers     []string `json:"AllAnswers"`
	CorrectAnswers []string `json:"CorrectAnswers"`
}

// GameBoard is a reusable board template. Products holds the weighted product
// associations and QuestionIDs the active questions picked for the board.
type GameBoard struct {
	GameBoardID int64              `json:"gameBoardId"`
	Name        string             `json:"name"`
	NumFields   int                `json:"numFields"`
	UserID      int64              `json:"userId"`
	Products    []GameBoardProduct `json:"products"`
	QuestionIDs []int64            `json:"questionIds"`
}

type GameBoardProduct struct {
	GameBoardID    int64 `json:"gameBoardId"`
	ProductID      int64 `json:"productId"`
	NumOfRepeating int   `json:"numOfRepeating"`
}

// Statistic is an append-only record of a finished game. The host's names are
// a snapshot taken when the record was created.
type Statistic struct {
	RecordID   int64  `json:"recordId"`
	UserID     int64  `json:"userId"`
	LastName   string `json:"lastName"`
	FirstName  string `json:"firstName"`
	Patronymic string `json:"patronymic"`
	Login      string `json:"login"`
	Date       string `json:"date"`
	Duration   string `json:"duration"`
	Results    string `json:"results"`
}

// StatisticResults is the document stored in Statistic.Results.
type StatisticResults struct {
	Teams []Team `json:"Teams"`
}

type Team struct {
	Name    *string         `json:"Name"`
	Players []string        `json:"Players"`
	Score   decimal.Decimal `json:"Score"`
	Place   int             `json:"Place"`
}
