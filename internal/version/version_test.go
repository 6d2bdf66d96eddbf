package version

import "testing"

func TestVersionString(t *testing.T) {
	tests := []struct {
		v    Version
		want string
	}{
		{DCNTE, "DCNTE"},
		{DCV1, "DCv1"},
		{DCV2, "DCv2"},
		{PCV2, "PCv2"},
		{GCNTE, "GCNTE"},
		{GC, "GC"},
		{GCEp3NTE, "GCEp3NTE"},
		{GCEp3, "GCEp3"},
		{XB, "XB"},
		{BB, "BB"},
		{Version(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("Version.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsGC(t *testing.T) {
	for _, v := range []Version{GCNTE, GC, GCEp3NTE, GCEp3} {
		if !v.IsGC() {
			t.Errorf("%s.IsGC() = false, want true", v)
		}
	}
	for _, v := range []Version{DCNTE, DCV1, DCV2, PCV2, XB, BB} {
		if v.IsGC() {
			t.Errorf("%s.IsGC() = true, want false", v)
		}
	}
}

func TestIsEp3(t *testing.T) {
	if !GCEp3NTE.IsEp3() || !GCEp3.IsEp3() {
		t.Error("GCEp3NTE/GCEp3 should report IsEp3() == true")
	}
	if GC.IsEp3() {
		t.Error("GC.IsEp3() = true, want false")
	}
}

func TestIsDC(t *testing.T) {
	for _, v := range []Version{DCNTE, DCV1, DCV2} {
		if !v.IsDC() {
			t.Errorf("%s.IsDC() = false, want true", v)
		}
	}
	if PCV2.IsDC() {
		t.Error("PCV2.IsDC() = true, want false")
	}
}

func TestDialect(t *testing.T) {
	tests := []struct {
		v    Version
		want HeaderDialect
	}{
		{PCV2, DialectPCPatch},
		{BB, DialectBB},
		{DCV2, DialectDCGCXB},
		{GC, DialectDCGCXB},
	}
	for _, tt := range tests {
		if got := tt.v.Dialect(); got != tt.want {
			t.Errorf("%s.Dialect() = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestAlignment(t *testing.T) {
	if BB.Alignment() != 8 {
		t.Errorf("BB.Alignment() = %d, want 8", BB.Alignment())
	}
	if GC.Alignment() != 4 {
		t.Errorf("GC.Alignment() = %d, want 4", GC.Alignment())
	}
}
