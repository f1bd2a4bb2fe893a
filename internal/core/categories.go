package core

// Localized category names the application relies on.
const (
	CategoryOther       = "อื่นๆ"
	CategorySavings     = "เงินออม"
	CategoryDebtPayment = "ชำระหนี้"
	CategoryBills       = "บิล/ค่าบริการ"
)

type defaultCategory struct {
	Name string
	Type TransactionType
}

var defaultCategories = []defaultCategory{
	{"เงินเดือน", Income},
	{"รายได้เสริม", Income},
	{"เงินคืน", Income},
	{"ของขวัญ/โบนัส", Income},
	{CategoryOther, Income},

	{"อาหาร", Expense},
	{"เดินทาง", Expense},
	{"ที่อยู่อาศัย", Expense},
	{"บันเทิง", Expense},
	{"ชอปปิง", Expense},
	{"สุขภาพ", Expense},
	{"การศึกษา", Expense},
	{CategoryBills, Expense},
	{CategoryOther, Expense},
}

// DefaultCategories returns the starter set seeded for a new owner.
func DefaultCategories() []Category {
	out := make([]Category, len(defaultCategories))
	for i, d := range defaultCategories {
		out[i] = Category{Name: d.Name, Type: d.Type}
	}
	return out
}

// CategoryNames returns the names of categories of type t, in order.
func CategoryNames(categories []Category, t TransactionType) []string {
	var names []string
	for _, c := range categories {
		if c.Type == t {
			names = append(names, c.Name)
		}
	}
	return names
}

// HasCategory reports whether a category named name exists for type t.
func HasCategory(categories []Category, name string, t TransactionType) bool {
	for _, c := range categories {
		if c.Type == t && c.Name == name {
			return true
		}
	}
	return false
}
