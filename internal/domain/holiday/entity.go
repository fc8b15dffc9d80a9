package holiday

type Category string

const (
	CategoryRegular           Category = "Regular Holiday"
	CategorySpecialNonWorking Category = "Special Non-working Holiday"
	CategorySpecialWorking    Category = "Special Working Holiday"
	CategoryWeeklyOff         Category = "Weekly Off"
)

func (c Category) IsLegal() bool {
	return c == CategoryRegular
}

func (c Category) IsSpecial() bool {
	return c == CategorySpecialNonWorking || c == CategorySpecialWorking
}

func (c Category) IsRestDay() bool {
	return c == CategoryWeeklyOff
}
