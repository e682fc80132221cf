package normalize

// synonyms maps spelling variants and regional aliases to the form used in indexed venue text.
// Keys are lower-case.
var synonyms = map[string]string{
	"돈까스":   "돈가스",
	"돈카츠":   "돈가스",
	"오뎅":    "어묵",
	"쭈꾸미":   "주꾸미",
	"순대국":   "순댓국",
	"고기집":   "고깃집",
	"떡뽁이":   "떡볶이",
	"떡복이":   "떡볶이",
	"닭도리탕":  "닭볶음탕",
	"부대찌게":  "부대찌개",
	"김치찌게":  "김치찌개",
	"된장찌게":  "된장찌개",
	"고로케":   "크로켓",
	"까페":    "카페",
	"커피숍":   "카페",
	"coffee": "커피",
	"cafe":   "카페",
	"pasta":  "파스타",
	"pizza":  "피자",
	"sushi":  "스시",
	"초밥":    "스시",
	"burger": "버거",
	"햄버거":   "버거",
	"brunch": "브런치",
	"bar":    "술집",
	"이자까야":  "이자카야",
	"pc방":   "피시방",
}
