package domain

import "testing"

func snapWith(ageHours *float64, holders *int, spike *float64) *TokenFeatureSnapshot {
	return &TokenFeatureSnapshot{
		TokenID:   "mintA",
		Timeframe: Timeframe1h,
		Behavioral: BehavioralFeatures{
			TokenAgeHours:    ageHours,
			NewHolders24h:    holders,
			VolumeSpikeRatio: spike,
		},
	}
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestFreshLaunch(t *testing.T) {
	tests := []struct {
		name    string
		age     *float64
		holders *int
		want    bool
	}{
		{"young with holders", fptr(6), iptr(8), true},
		{"age at boundary excluded", fptr(12), iptr(8), false},
		{"just under boundary", fptr(11.5), iptr(8), true},
		{"too old", fptr(48), iptr(8), false},
		{"holders below minimum", fptr(6), iptr(4), false},
		{"holders at minimum", fptr(6), iptr(5), true},
		{"missing age", nil, iptr(8), false},
		{"missing holders", fptr(6), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snapWith(tt.age, tt.holders, nil)
			if got := s.FreshLaunch(12, 5); got != tt.want {
				t.Errorf("FreshLaunch(12, 5) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeSpike(t *testing.T) {
	if s := snapWith(nil, nil, fptr(2.5)); !s.VolumeSpike(2.0) {
		t.Error("ratio 2.5 should pass threshold 2.0")
	}
	if s := snapWith(nil, nil, fptr(2.0)); !s.VolumeSpike(2.0) {
		t.Error("ratio at threshold should pass")
	}
	if s := snapWith(nil, nil, fptr(1.9)); s.VolumeSpike(2.0) {
		t.Error("ratio 1.9 should not pass threshold 2.0")
	}
	if s := snapWith(nil, nil, nil); s.VolumeSpike(2.0) {
		t.Error("nil ratio should never pass")
	}
}
