package geo

import (
	"math"
	"testing"
)

func TestDistanceKm_KnownPairs(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Point
		wantKm float64
		tolKm  float64
	}{
		{
			name:   "same point",
			a:      Point{Lat: 28.6139, Lng: 77.2090},
			b:      Point{Lat: 28.6139, Lng: 77.2090},
			wantKm: 0,
			tolKm:  0.001,
		},
		{
			name:   "delhi to mumbai",
			a:      Point{Lat: 28.6139, Lng: 77.2090},
			b:      Point{Lat: 19.0760, Lng: 72.8777},
			wantKm: 1153,
			tolKm:  15,
		},
		{
			name:   "short hop within a city",
			a:      Point{Lat: 12.9716, Lng: 77.5946},
			b:      Point{Lat: 12.9352, Lng: 77.6245},
			wantKm: 5.2,
			tolKm:  0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolKm {
				t.Errorf("DistanceKm = %.2f, want %.2f ± %.2f", got, tt.wantKm, tt.tolKm)
			}
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := Point{Lat: 28.6139, Lng: 77.2090}
	b := Point{Lat: 19.0760, Lng: 72.8777}
	if d1, d2 := DistanceKm(a, b), DistanceKm(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %.6f vs %.6f", d1, d2)
	}
}

func TestPointValid(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"normal", Point{Lat: 28.6, Lng: 77.2}, true},
		{"zero zero is missing", Point{}, false},
		{"lat out of range", Point{Lat: 91, Lng: 10}, false},
		{"lng out of range", Point{Lat: 10, Lng: -181}, false},
		{"negative coordinates", Point{Lat: -33.8688, Lng: 151.2093}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
