package player

import "github.com/minhtien379/Loto/internal/dependencies/random"

var (
	animals = []string{
		"Mèo", "Chó", "Gà", "Vịt", "Heo", "Trâu", "Ngựa", "Dê",
		"Khỉ", "Thỏ", "Cọp", "Rồng", "Rắn", "Chuột", "Cá", "Ếch",
	}
	adjectives = []string{
		"Vui", "Lười", "Nhanh", "Khôn", "Mập", "Ngầu", "Xinh", "Hên",
		"Liều", "Lanh", "Hiền", "Ham Chơi", "Tỉnh Táo", "May Mắn",
	}
)

// RandomName returns an "animal adjective" display name
func RandomName(r random.Random) string {
	return animals[r.Intn(len(animals))] + " " + adjectives[r.Intn(len(adjectives))]
}
