package spreadsheet_test

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/spreadsheet"
)

func ptr[T any](v T) *T { return &v }

func TestFormatAnswers(t *testing.T) {
	tests := map[string]struct {
		answers *string
		want    string
	}{
		"nil": {
			answers: nil,
			want:    "",
		},
		"marks correct answers": {
			answers: ptr(`{"AllAnswers":["рыба","птица","кот"],"CorrectAnswers":["кот"]}`),
			want:    "[рыба];[птица];[(*)кот]",
		},
		"not a document": {
			answers: ptr("just text"),
			want:    "just text",
		},
		"empty document": {
			answers: ptr(`{}`),
			want:    "",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.want, spreadsheet.FormatAnswers(tt.answers))
		})
	}
}

func TestParseAnswers(t *testing.T) {
	tests := map[string]struct {
		cell string
		want string
	}{
		"mixed": {
			cell: "[a];[(*)b];[c]",
			want: `{"AllAnswers":["a","b","c"],"CorrectAnswers":["b"]}`,
		},
		"empty": {
			cell: "",
			want: `{"AllAnswers":[],"CorrectAnswers":[]}`,
		},
		"noise outside brackets": {
			cell: "x [<a>] y;[(*)b & c]",
			want: `{"AllAnswers":["<a>","b & c"],"CorrectAnswers":["b & c"]}`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.want, spreadsheet.ParseAnswers(tt.cell))
		})
	}
}

func TestWriteReadProducts(t *testing.T) {
	ps := []domain.Product{
		{
			ProductID: 4,
			Name:      "Вода",
			Colour:    "blue",
			Round:     2,
			Logo:      ptr("logo4.png"),
			Questions: []domain.Question{
				{
					QuestionID:   10,
					ProductID:    4,
					Type:         ptr(domain.QuestionTypeTextWithAnswers),
					ShortText:    ptr("short"),
					Text:         ptr("Which one?"),
					Answers:      ptr(`{"AllAnswers":["a","b"],"CorrectAnswers":["a"]}`),
					LastEditDate: "6/1/2024 1:02:03 PM",
				},
				{
					QuestionID:   11,
					ProductID:    4,
					Type:         ptr(domain.QuestionTypeMedia),
					Media:        ptr("media11.mp4"),
					Answers:      ptr(`{"AllAnswers":[],"CorrectAnswers":[]}`),
					LastEditDate: "6/1/2024 1:02:03 PM",
				},
			},
		},
		{ProductID: 5, Name: "a/b:c", Colour: "red", Questions: []domain.Question{}},
	}

	var buf bytes.Buffer
	require.NoError(t, spreadsheet.WriteProducts(&buf, ps))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, []string{"Вода", "a_b_c"}, f.GetSheetList())
	require.NoError(t, f.Close())

	got, err := spreadsheet.ReadProducts(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, ps, got)
}

func TestReadProducts_Lenient(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "not a number"))
	require.NoError(t, f.SetCellValue("Sheet1", "B3", "Soil"))
	require.NoError(t, f.SetCellValue("Sheet1", "E3", "three"))
	require.NoError(t, f.SetCellValue("Sheet1", "B7", "x"))
	require.NoError(t, f.SetCellValue("Sheet1", "F7", "[(*)yes];[no]"))
	require.NoError(t, f.SetCellValue("Sheet1", "B9", "after the gap"))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	got, err := spreadsheet.ReadProducts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)

	p := got[0]
	require.Zero(t, p.ProductID)
	require.Zero(t, p.Round)
	require.Equal(t, "Soil", p.Name)
	require.Len(t, p.Questions, 1, "reading stops at the first empty row")
	require.Zero(t, p.Questions[0].QuestionID)
	require.Equal(t, `{"AllAnswers":["yes","no"],"CorrectAnswers":["yes"]}`, *p.Questions[0].Answers)
}

func TestWriteStatistics(t *testing.T) {
	var buf bytes.Buffer
	err := spreadsheet.WriteStatistics(&buf, []spreadsheet.StatisticRow{
		{RecordID: 1, Date: "6/1/2024", Duration: "01:30:00", Host: "Ivanov Ivan Ivanovich", Login: "ivan", Team: "Red", Player: "p1", Score: decimal.RequireFromString("12.5"), Place: 1},
		{RecordID: 1, Date: "6/1/2024", Duration: "01:30:00", Host: "Ivanov Ivan Ivanovich", Login: "ivan", Team: "Red", Player: "p2", Score: decimal.RequireFromString("12.5"), Place: 1},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Statistics")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"", "Date", "Duration", "Host", "Host login", "Team", "Player", "Score", "Place"}, rows[0])
	require.Equal(t, []string{"1", "6/1/2024", "01:30:00", "Ivanov Ivan Ivanovich", "ivan", "Red", "p2", "12.5", "1"}, rows[2])
}
