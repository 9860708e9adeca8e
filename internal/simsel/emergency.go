package simsel

// Category is the emergency service category bitmask carried by USIM
// emergency lists and 3GPP default tables.
type Category int

const (
	CategoryPolice Category = 1 << iota
	CategoryAmbulance
	CategoryFire
	CategoryMarine
	CategoryMountain
	CategoryNone Category = 0
)

// universalECC is emergency on every network, SIM or not.
var universalECC = []EccEntry{
	{"112", CategoryPolice | CategoryAmbulance | CategoryFire},
	{"911", CategoryPolice | CategoryAmbulance | CategoryFire},
}

// noSimECC is the extra fallback list used only when no SIM is
// present, per the TS 22.101 no-SIM defaults.
var noSimECC = []EccEntry{
	{"000", CategoryPolice | CategoryAmbulance | CategoryFire},
	{"08", CategoryNone},
	{"110", CategoryPolice},
	{"118", CategoryFire},
	{"119", CategoryAmbulance | CategoryFire},
	{"999", CategoryPolice | CategoryAmbulance | CategoryFire},
}

// mccECC holds per-country emergency defaults keyed by MCC, applied
// when the SIM list did not match. Countries whose regulator maps
// additional short numbers; "112"/"911" are covered by universalECC.
var mccECC = map[string][]EccEntry{
	// United States and territories
	"310": nil, "311": nil, "312": nil, "313": nil, "316": nil,
	// Brazil
	"724": {
		{"190", CategoryPolice},
		{"192", CategoryAmbulance},
		{"193", CategoryFire},
	},
	// South Korea
	"450": {
		{"111", CategoryPolice},
		{"113", CategoryPolice},
		{"119", CategoryAmbulance | CategoryFire},
		{"122", CategoryMarine},
	},
	// Japan
	"440": {
		{"110", CategoryPolice},
		{"118", CategoryMarine},
		{"119", CategoryAmbulance | CategoryFire},
	},
	// Croatia
	"219": {
		{"92", CategoryPolice},
		{"93", CategoryFire},
		{"94", CategoryAmbulance},
	},
	// Serbia
	"220": {
		{"92", CategoryPolice},
		{"93", CategoryFire},
		{"94", CategoryAmbulance},
	},
	// China
	"460": {
		{"110", CategoryPolice},
		{"119", CategoryFire},
		{"120", CategoryAmbulance},
	},
}

// testMCCAlias maps test-network MCC/MNC pairs burned into certain
// carrier SIM profiles onto the real country they behave as.
var testMCCAlias = map[string]string{
	// test SIMs provisioned by carriers on the 001/01 test PLMN
	"001/01": "450",
}

// IsEmergencyNumber classifies a dialable number against the ordered
// fallback chain: SIM-provided list first, then the no-SIM defaults,
// then the network's MCC-derived 3GPP defaults. The order is
// load-bearing: the SIM list always wins, and a false negative is a
// safety problem, so every layer is consulted before giving up.
func IsEmergencyNumber(s *SlotStatus, number string) (bool, Category) {
	if number == "" {
		return false, CategoryNone
	}

	// 1. SIM-provided emergency list. CardSIM carries a flat list of
	// five with no categories, CardUSIM a categorized one; both are
	// normalized into SimECC at status update time.
	for _, e := range s.SimECC {
		if e.Number == number {
			return true, e.Category
		}
	}

	// 2. Numbers that are emergency on every network.
	for _, e := range universalECC {
		if e.Number == number {
			return true, e.Category
		}
	}

	// 3. No-SIM fallback defaults.
	if s.NoSIM {
		for _, e := range noSimECC {
			if e.Number == number {
				return true, e.Category
			}
		}
	}

	// 4. MCC-derived country defaults, with carrier test-PLMN
	// aliasing resolved first.
	mcc := s.MCC
	if alias, ok := testMCCAlias[s.MCC+"/"+s.MNC]; ok {
		mcc = alias
	}
	for _, e := range mccECC[mcc] {
		if e.Number == number {
			return true, e.Category
		}
	}

	return false, CategoryNone
}
