package glosas

// Classification partitions a set of line items into invoice categories.
type Classification struct {
	// Base is the classified input in loader order.
	Base []LineItem
	// Tables holds the items of every invoice that landed in each category.
	Tables map[Category][]LineItem
	// Invoices holds the distinct invoice ids per category, in first-seen order.
	Invoices map[Category][]string
	// keys mirrors Invoices with the composite keys used for grouping.
	keys map[Category][]invoiceKey
	// TotalInvoices is the number of distinct invoices in Base.
	TotalInvoices int
	// Categorized is the sum of the per-category invoice counts.
	Categorized int
	// IntegrityOK reports TotalInvoices == Categorized.
	IntegrityOK bool
	// NoData is set when the input was empty.
	NoData bool
}

// Count returns the number of invoices in the category.
func (c Classification) Count(cat Category) int {
	return len(c.Invoices[cat])
}

// Items returns the items of the requested categories, deduplicated by
// invoice, keeping Base order.
func (c Classification) Items(cats ...Category) []LineItem {
	wanted := make(map[invoiceKey]struct{})
	for _, cat := range cats {
		for _, k := range c.keys[cat] {
			wanted[k] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return nil
	}
	return filterByInvoice(c.Base, wanted, true)
}

// Classify groups items by invoice and assigns each invoice to exactly one
// category. An invoice is pure in a category when every one of its items meets
// that category's condition; everything else is Mixed.
func Classify(items []LineItem) Classification {
	result := Classification{
		Base:     items,
		Tables:   make(map[Category][]LineItem, len(Categories)),
		Invoices: make(map[Category][]string, len(Categories)),
		keys:     make(map[Category][]invoiceKey, len(Categories)),
	}
	for _, cat := range Categories {
		result.Tables[cat] = []LineItem{}
		result.Invoices[cat] = []string{}
		result.keys[cat] = []invoiceKey{}
	}
	if len(items) == 0 {
		result.NoData = true
		result.IntegrityOK = true
		return result
	}

	type tally struct {
		total int
		byCat map[Category]int
	}
	order := make([]invoiceKey, 0)
	tallies := make(map[invoiceKey]*tally)
	for _, item := range items {
		k := item.key()
		t, ok := tallies[k]
		if !ok {
			t = &tally{byCat: make(map[Category]int, len(PureCategories))}
			tallies[k] = t
			order = append(order, k)
		}
		t.total++
		t.byCat[item.Category()]++
	}

	pure := make(map[invoiceKey]Category)
	for _, cat := range PureCategories {
		members := make(map[invoiceKey]struct{})
		for _, k := range order {
			t := tallies[k]
			if t.byCat[cat] == t.total {
				members[k] = struct{}{}
				pure[k] = cat
				result.add(cat, k)
			}
		}
		result.Tables[cat] = filterByInvoice(items, members, true)
	}

	// Mixed is the complement of the union of the pure sets.
	mixed := make(map[invoiceKey]struct{})
	for _, k := range order {
		if _, ok := pure[k]; ok {
			continue
		}
		mixed[k] = struct{}{}
		result.add(CategoryMixed, k)
	}
	result.Tables[CategoryMixed] = filterByInvoice(items, mixed, true)

	result.TotalInvoices = len(order)
	for _, cat := range Categories {
		result.Categorized += len(result.Invoices[cat])
	}
	result.IntegrityOK = result.TotalInvoices == result.Categorized
	return result
}

func (c *Classification) add(cat Category, k invoiceKey) {
	c.keys[cat] = append(c.keys[cat], k)
	c.Invoices[cat] = append(c.Invoices[cat], k.id())
}

// filterByInvoice keeps (keep=true) or drops (keep=false) items whose invoice
// key is in ids.
func filterByInvoice(items []LineItem, ids map[invoiceKey]struct{}, keep bool) []LineItem {
	out := make([]LineItem, 0)
	for _, item := range items {
		_, ok := ids[item.key()]
		if ok == keep {
			out = append(out, item)
		}
	}
	return out
}
