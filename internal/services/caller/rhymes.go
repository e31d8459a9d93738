package caller

// rhymes holds the traditional caller phrase for every number
var rhymes = [91]string{
	1:  "Nhất phát đăng khoa",
	2:  "Nhị gia hòa thuận",
	3:  "Tam tài vạn lợi",
	4:  "Tứ hải giao tình",
	5:  "Ngũ phúc lâm môn",
	6:  "Lục súc hưng vượng",
	7:  "Thất tinh tụ hội",
	8:  "Bát tiên quá hải",
	9:  "Cửu trùng xuân sắc",
	10: "Thập toàn thập mỹ",
	11: "Mười một, một ông cháu",
	12: "Mười hai, em hai rằng em yêu anh",
	13: "Mười ba, cơm vua chả chạy",
	14: "Mười bốn, đôi ta thương nhau",
	15: "Mười lăm, trăng rằm sáng tỏ",
	16: "Mười sáu, tuổi mười sáu trăng tròn",
	17: "Mười bảy, bẻ gãy sừng trâu",
	18: "Mười tám, đôi mươi thanh xuân",
	19: "Mười chín, suýt soát hai mươi",
	20: "Hai mươi, đôi ngang",
	21: "Hai mốt, bán rẻ, bán đắt cũng lời",
	22: "Hai hai, con ngỗng te te",
	23: "Hai ba, yêu nhau lắm cắn nhau đau",
	24: "Hai bốn, cô gái hai cân",
	25: "Hai lăm, chát chát chít chít",
	26: "Hai sáu, nàng về dinh",
	27: "Hai bảy, bảy đi ba ngày",
	28: "Hai tám, tiền bầu nước vối",
	29: "Hai chín, ông thần mập mạp",
	30: "Ba mươi, tối như đêm ba mươi",
	31: "Ba mốt, đào, quýt, cam, chanh",
	32: "Ba hai, đi đâu về đâu",
	33: "Ba ba, con rùa",
	34: "Ba tư, thầy tư ngồi đếm",
	35: "Ba lăm, lên mây năm sắc",
	36: "Ba sáu, con sáo sang sông",
	37: "Ba bảy, mẹ dạy con thơ",
	38: "Ba tám, cha già cầu tự",
	39: "Ba chín, rượu nồng lai láng",
	40: "Bốn mươi, ngang tàng lém lỉnh",
	41: "Bốn mốt, một niềm vui",
	42: "Bốn hai, trên đôi dưới đôi",
	43: "Bốn ba, trống bỏi kèn ta",
	44: "Bốn tư, bốn con chó ngồi trong tủ",
	45: "Bốn lăm, cầm can mà về",
	46: "Bốn sáu, đẹp trai như sáu",
	47: "Bốn bảy, gáy to lên bảy",
	48: "Bốn tám, đệm và nệm",
	49: "Bốn chín, chin lén chớ coi",
	50: "Năm mươi, nửa trăm nửa chục",
	51: "Năm mốt, ngũ thập nhất",
	52: "Năm hai, phải hai mà về",
	53: "Năm ba, chợ Cầu Ông Lãnh",
	54: "Năm tư, ở nhà bà từ",
	55: "Năm lăm, lịch sự đàng hoàng",
	56: "Năm sáu, sáu câu ca dao",
	57: "Năm bảy, chim bảy màu",
	58: "Năm tám, giữ tám cổ",
	59: "Năm chín, mắc cỡ chín",
	60: "Sáu mươi, hưởng dương trọn đời",
	61: "Sáu mốt, vợ nọ con kia",
	62: "Sáu hai, chị dâu ôm hai",
	63: "Sáu ba, bà già xúc đất",
	64: "Sáu tư, tư duy sáu",
	65: "Sáu lăm, năm lăm thêm mười",
	66: "Sáu sáu, lục lục thêm lời",
	67: "Sáu bảy, bảy bà trộm khoai",
	68: "Sáu tám, phát tài phát lộc",
	69: "Sáu chín, ngang bằng lộn ngược",
	70: "Bảy mươi, lụm cụm già",
	71: "Bảy mốt, khấp khểnh đầu gối",
	72: "Bảy hai, như con cá sặc rô hai",
	73: "Bảy ba, cò đậu cành tre",
	74: "Bảy tư, đẹp trai râu hùm",
	75: "Bảy lăm, lăm le muốn dzô",
	76: "Bảy sáu, sáu trưởng tám bé",
	77: "Bảy bảy, hai con quạ",
	78: "Bảy tám, bảy tám quên già",
	79: "Bảy chín, chín mươi trừ một",
	80: "Tám mươi, về hội",
	81: "Tám mốt, nhất mộc nan trì",
	82: "Tám hai, thọ trường hơn tuổi",
	83: "Tám ba, ông già gân",
	84: "Tám tư, bát tự sáng ngời",
	85: "Tám lăm, lăm lăm hai lần",
	86: "Tám sáu, phát tài phát lộc",
	87: "Tám bảy, cúi đầu ngó xuống",
	88: "Tám tám, phát lộc phát tài",
	89: "Tám chín, đâu đâu cũng có",
	90: "Chín mươi, trăm trừ mười, hết số rồi!",
}
