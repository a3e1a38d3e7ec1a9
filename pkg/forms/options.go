package forms

// Option is one entry of a fixed select list.
type Option struct {
	ID    string
	Label string
}

// Categories are the top-level eBay categories offered by the editor.
var Categories = []Option{
	{"1", "Antiques"},
	{"2", "Art"},
	{"3", "Baby"},
	{"4", "Books"},
	{"5", "Business & Industrial"},
	{"6", "Cameras & Photo"},
	{"7", "Cell Phones & Accessories"},
	{"8", "Clothing, Shoes & Accessories"},
	{"9", "Coins & Paper Money"},
	{"10", "Collectibles"},
	{"11", "Computers/Tablets & Networking"},
	{"12", "Consumer Electronics"},
	{"13", "Crafts"},
	{"14", "Dolls & Bears"},
	{"15", "DVDs & Movies"},
	{"16", "Entertainment Memorabilia"},
	{"17", "Gift Cards & Coupons"},
	{"18", "Health & Beauty"},
	{"19", "Home & Garden"},
	{"20", "Jewelry & Watches"},
	{"21", "Music"},
	{"22", "Musical Instruments & Gear"},
	{"23", "Pet Supplies"},
	{"24", "Pottery & Glass"},
	{"25", "Real Estate"},
	{"26", "Specialty Services"},
	{"27", "Sporting Goods"},
	{"28", "Sports Mem, Cards & Fan Shop"},
	{"29", "Stamps"},
	{"30", "Tickets & Experiences"},
	{"31", "Toys & Hobbies"},
	{"32", "Travel"},
	{"33", "Video Games & Consoles"},
	{"34", "Everything Else"},
}

// Conditions are the eBay item condition ids.
var Conditions = []Option{
	{"1000", "New"},
	{"1500", "New other (see details)"},
	{"1750", "New with defects"},
	{"2000", "Certified - Refurbished"},
	{"2500", "Excellent - Refurbished"},
	{"3000", "Very Good - Refurbished"},
	{"4000", "Good - Refurbished"},
	{"5000", "Seller Refurbished"},
	{"6000", "Used"},
	{"7000", "Very Good"},
	{"8000", "Good"},
	{"9000", "Acceptable"},
	{"10000", "For parts or not working"},
}

var (
	categoryLabels  = index(Categories)
	conditionLabels = index(Conditions)
)

func index(options []Option) map[string]string {
	out := make(map[string]string, len(options))
	for _, opt := range options {
		out[opt.ID] = opt.Label
	}
	return out
}

// CategoryLabel resolves a category id to its display label.
func CategoryLabel(id string) (string, bool) {
	label, ok := categoryLabels[id]
	return label, ok
}

// ConditionLabel resolves a condition id to its display label.
func ConditionLabel(id string) (string, bool) {
	label, ok := conditionLabels[id]
	return label, ok
}
