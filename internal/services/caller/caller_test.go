package caller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/minhtien379/Loto/internal/model"
)

func TestWords(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "không"},
		{1, "một"},
		{10, "mười"},
		{11, "mười một"},
		{15, "mười lăm"},
		{17, "mười bảy"},
		{20, "hai mươi"},
		{21, "hai mươi mốt"},
		{34, "ba mươi tư"},
		{45, "bốn mươi lăm"},
		{67, "sáu mươi bảy"},
		{90, "chín mươi"},
		{-1, ""},
		{100, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Words(tt.n), "Words(%d)", tt.n)
	}
}

func TestEveryNumberHasRhyme(t *testing.T) {
	for n := model.MinNumber; n <= model.MaxNumber; n++ {
		assert.NotEmpty(t, rhymes[n], "number %d", n)
	}
}

func TestRhymeFallsBackToPlainCall(t *testing.T) {
	assert.Equal(t, "Nhất phát đăng khoa", Rhyme(1))
	assert.Equal(t, "Số chín mươi mốt", Rhyme(91))
}

func TestAnnouncement(t *testing.T) {
	assert.Equal(t, "Số ba... Tam tài vạn lợi", Announcement(3))
}
