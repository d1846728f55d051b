package core

// Static category taxonomy. Both lists are ordered and immutable for the
// process lifetime; the first entry doubles as the default when a draft
// arrives without a category. The expense list also drives zero-filling in
// breakdowns so charts always render a stable category set.
var (
	ExpenseCategories = []string{
		"Food",
		"Travel",
		"Rent",
		"Utilities",
		"Shopping",
		"Entertainment",
		"Health",
		"Miscellaneous",
	}

	IncomeCategories = []string{
		"Salary",
		"Freelance",
		"Investment",
		"Gift",
		"Other",
	}
)

// DefaultCategory returns the first category of the list matching the type.
func DefaultCategory(t TransactionType) string {
	if t == Income {
		return IncomeCategories[0]
	}
	return ExpenseCategories[0]
}

// CategoriesFor returns a copy of the canonical list for the given type.
func CategoriesFor(t TransactionType) []string {
	src := ExpenseCategories
	if t == Income {
		src = IncomeCategories
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
