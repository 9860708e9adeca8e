package simsel

import "testing"

func TestSimListTakesPrecedence(t *testing.T) {
	// The SIM carries "112" while the serving network's country
	// defaults do not list it; the SIM list must win.
	s := &SlotStatus{
		SIMInitialized: true,
		CardType:       CardUSIM,
		SimECC:         []EccEntry{{"112", CategoryPolice | CategoryAmbulance}},
		MCC:            "450",
	}
	ok, cat := IsEmergencyNumber(s, "112")
	if !ok {
		t.Fatal("expected 112 to classify as emergency via SIM list")
	}
	if cat != CategoryPolice|CategoryAmbulance {
		t.Errorf("expected SIM-provided category, got %v", cat)
	}
}

func TestUniversalNumbers(t *testing.T) {
	s := &SlotStatus{SIMInitialized: true}
	for _, n := range []string{"112", "911"} {
		if ok, _ := IsEmergencyNumber(s, n); !ok {
			t.Errorf("expected %s to be emergency on any network", n)
		}
	}
}

func TestNoSimFallbackList(t *testing.T) {
	s := &SlotStatus{NoSIM: true}
	for _, n := range []string{"112", "911", "000", "08", "110", "118", "119", "999"} {
		if ok, _ := IsEmergencyNumber(s, n); !ok {
			t.Errorf("expected %s to be emergency with no SIM", n)
		}
	}
	// The no-SIM extras must not apply once a SIM is present.
	withSim := &SlotStatus{SIMInitialized: true}
	if ok, _ := IsEmergencyNumber(withSim, "08"); ok {
		t.Error("expected 08 to be non-emergency with a SIM and no matching MCC")
	}
}

func TestMccDerivedDefaults(t *testing.T) {
	s := &SlotStatus{SIMInitialized: true, MCC: "724"}
	tests := []struct {
		number string
		want   bool
		cat    Category
	}{
		{"190", true, CategoryPolice},
		{"192", true, CategoryAmbulance},
		{"193", true, CategoryFire},
		{"194", false, CategoryNone},
	}
	for _, tt := range tests {
		ok, cat := IsEmergencyNumber(s, tt.number)
		if ok != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.number, tt.want, ok)
		}
		if cat != tt.cat {
			t.Errorf("%s: expected category %v, got %v", tt.number, tt.cat, cat)
		}
	}
}

func TestTestPlmnAliasing(t *testing.T) {
	// A test SIM on the 001/01 PLMN behaves as its carrier's real
	// country profile.
	s := &SlotStatus{SIMInitialized: true, MCC: "001", MNC: "01"}
	if ok, _ := IsEmergencyNumber(s, "119"); !ok {
		t.Error("expected 119 emergency via test-PLMN alias")
	}
	other := &SlotStatus{SIMInitialized: true, MCC: "001", MNC: "99"}
	if ok, _ := IsEmergencyNumber(other, "119"); ok {
		t.Error("expected no alias for unlisted test MNC")
	}
}

func TestEmptyNumber(t *testing.T) {
	if ok, _ := IsEmergencyNumber(&SlotStatus{NoSIM: true}, ""); ok {
		t.Error("expected empty number to be non-emergency")
	}
}
