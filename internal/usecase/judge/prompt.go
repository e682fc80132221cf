package judge

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/venuerank/internal/domain"
)

// BuildPrompt renders the selection prompt. Candidates are numbered from 1.
func BuildPrompt(in Input, maxResults int) string {
	var b strings.Builder

	b.WriteString("사용자 조건에 맞는 매장을 후보 목록에서 골라 우선순위대로 정렬하세요.\n\n")
	b.WriteString("<사용자 조건>\n")
	fmt.Fprintf(&b, "- 키워드: %s\n", strings.Join(in.Keywords, ", "))
	if in.Category != "" {
		fmt.Fprintf(&b, "- 카테고리: %s\n", in.Category)
	}
	if in.PeopleCount > 0 {
		fmt.Fprintf(&b, "- 인원: %d명\n", in.PeopleCount)
	}

	b.WriteString("\n<후보 매장>\n")
	for i, v := range in.Venues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, v.Name)
		fmt.Fprintf(&b, "   주소: %s\n", v.Address())
		fmt.Fprintf(&b, "   분류: %s\n", v.SubCategory)
		menu := v.MenuOrMissing()
		if menu == domain.MissingMenu {
			fmt.Fprintf(&b, "   메뉴: %s (메뉴 정보 없음)\n", menu)
		} else {
			fmt.Fprintf(&b, "   메뉴: %s\n", menu)
		}
	}

	b.WriteString("\n<선택 기준>\n")
	b.WriteString("1. 메뉴 또는 제공 항목에 키워드가 실제로 포함된 매장을 최우선으로 선택\n")
	b.WriteString("2. 메뉴 정보가 있는 매장을 메뉴 정보가 없는 매장보다 우선\n")
	b.WriteString("3. 카테고리와 인원 수에 어울리지 않는 매장은 제외\n")
	b.WriteString("4. 이름과 주소가 거의 같은 중복 매장은 하나만 선택\n")

	b.WriteString("\n<출력 형식>\n")
	fmt.Fprintf(&b, "선택한 매장 번호만 쉼표로 구분해 우선순위 순서로 최대 %d개 출력하세요. 예: 3,1,7\n", maxResults)
	b.WriteString("번호 외의 설명은 출력하지 마세요.")
	return b.String()
}
