package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
)

func slipPrompt(vocab Vocabulary) string {
	return "วิเคราะห์รูปภาพสลิปการโอนเงินนี้ และดึงข้อมูลออกมาเป็น JSON ภาษาไทย\n" +
		"- type: ถ้าเป็นการโอนเงินให้ผู้อื่นหรือจ่ายเงิน ให้เป็น 'expense' ถ้าเป็นการรับเงินให้เป็น 'income'\n" +
		"- category: เลือกหมวดหมู่ที่เหมาะสมที่สุดจากรายการนี้: " + strings.Join(vocab.all(), ", ") +
		". หากไม่สามารถระบุได้ ให้ใช้ \"" + core.CategoryOther + "\".\n" +
		"- amount: จำนวนเงิน\n" +
		"- note: บันทึกสั้นๆ เช่น ชื่อผู้รับ, ชื่อผู้โอน, หรือรายละเอียดอื่นๆ ที่มีประโยชน์\n"
}

func spendingPrompt(txs []core.Transaction) (string, error) {
	data, err := json.MarshalIndent(txs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}
	return "วิเคราะห์ข้อมูลรายรับรายจ่ายต่อไปนี้ และให้ผลลัพธ์เป็น JSON ภาษาไทย\n" +
		"ข้อมูลธุรกรรม:\n" + string(data) + "\n\n" +
		"คำแนะนำ:\n" +
		"- สรุปภาพรวมการใช้จ่าย (summary)\n" +
		"- จัดลำดับหมวดหมู่รายจ่ายที่สูงสุด 3-5 อันดับ (topExpenseCategories) พร้อมคำนวณสัดส่วนเป็นเปอร์เซ็นต์ของรายจ่ายทั้งหมด\n" +
		"- ให้คำแนะนำเพื่อการออม (savingsSuggestions) ที่เหมาะสมกับพฤติกรรมการใช้จ่ายนี้\n" +
		"- คำนวณยอดรวมรายรับและรายจ่าย (monthlyChartData)\n", nil
}

// EmptySummary is returned without calling the model when there is nothing
// to analyze.
func EmptySummary() core.SpendingSummary {
	return core.SpendingSummary{
		Summary:              "ไม่มีข้อมูลธุรกรรมที่จะวิเคราะห์",
		TopExpenseCategories: []core.CategoryAmount{},
		SavingsSuggestions:   []string{"เพิ่มรายการธุรกรรมเพื่อรับคำแนะนำ"},
		MonthlyTotals:        core.MonthlyTotals{Income: core.Zero, Expense: core.Zero},
	}
}

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
