// Package caller turns drawn numbers into the words and rhymes a caller would say.
package caller

import (
	"fmt"

	"github.com/minhtien379/Loto/internal/model"
)

var digits = [11]string{
	"không", "một", "hai", "ba", "bốn", "năm", "sáu", "bảy", "tám", "chín", "mười",
}

// Words spells n in Vietnamese. It returns "" outside 0..99.
func Words(n int) string {
	switch {
	case n < 0 || n > 99:
		return ""
	case n <= 10:
		return digits[n]
	case n < 20:
		unit := n % 10
		switch unit {
		case 5:
			return "mười lăm"
		default:
			return "mười " + digits[unit]
		}
	}

	tens, unit := n/10, n%10
	result := digits[tens] + " mươi"
	switch unit {
	case 0:
		return result
	case 1:
		return result + " mốt"
	case 4:
		return result + " tư"
	case 5:
		return result + " lăm"
	default:
		return result + " " + digits[unit]
	}
}

// Rhyme returns the traditional phrase for n, or a plain call when there is none
func Rhyme(n int) string {
	if n >= model.MinNumber && n <= model.MaxNumber && rhymes[n] != "" {
		return rhymes[n]
	}
	return "Số " + Words(n)
}

// Announcement is the full line read out for a draw
func Announcement(n int) string {
	return fmt.Sprintf("Số %s... %s", Words(n), Rhyme(n))
}
