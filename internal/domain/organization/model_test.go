package organization

import "testing"

func TestTypeValid(t *testing.T) {
	for _, typ := range []Type{TypeHospital, TypeBloodBank, TypeNGO} {
		if !typ.Valid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if Type("clinic").Valid() {
		t.Error("clinic should be invalid")
	}
}

func TestLocation(t *testing.T) {
	lat, lng := 19.076, 72.8777
	o := &Organization{Latitude: &lat, Longitude: &lng}
	if p := o.Location(); p == nil || p.Lat != lat || p.Lng != lng {
		t.Fatalf("expected location, got %v", p)
	}

	if p := (&Organization{}).Location(); p != nil {
		t.Errorf("expected nil location without coords, got %v", p)
	}

	zero := 0.0
	if p := (&Organization{Latitude: &zero, Longitude: &zero}).Location(); p != nil {
		t.Errorf("zero/zero coords must be treated as missing, got %v", p)
	}

	bad := 120.0
	if p := (&Organization{Latitude: &bad, Longitude: &lng}).Location(); p != nil {
		t.Errorf("out of range latitude must be rejected, got %v", p)
	}
}
