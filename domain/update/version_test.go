package update

import "testing"

func TestIsNewer(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		current string
		want    bool
	}{
		{name: "patch bump", remote: "1.1.1", current: "1.1.0", want: true},
		{name: "equal", remote: "1.1.0", current: "1.1.0", want: false},
		{name: "lower", remote: "1.0.9", current: "1.1.0", want: false},
		{name: "multi-digit minor", remote: "1.10.0", current: "1.9.0", want: true},
		{name: "multi-digit minor reversed", remote: "1.9.0", current: "1.10.0", want: false},
		{name: "v prefix on one side", remote: "v1.2.0", current: "1.1.0", want: true},
		{name: "short form", remote: "2", current: "1.9.9", want: true},
		{name: "prerelease below release", remote: "1.2.0-rc.1", current: "1.2.0", want: false},
		{name: "garbage remote", remote: "latest", current: "1.1.0", want: false},
		{name: "empty remote", remote: "", current: "1.1.0", want: false},
		{name: "dev build current", remote: "1.0.0", current: "dev", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNewer(tt.remote, tt.current); got != tt.want {
				t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.remote, tt.current, got, tt.want)
			}
		})
	}
}

func TestManifest_Validate(t *testing.T) {
	tests := []struct {
		name        string
		manifest    Manifest
		wantErr     bool
		errContains string
	}{
		{
			name:     "valid",
			manifest: Manifest{Version: "1.2.0", URL: "https://example.com/app.exe", Notes: "fixes"},
		},
		{
			name:        "missing version",
			manifest:    Manifest{URL: "https://example.com/app.exe"},
			wantErr:     true,
			errContains: "version is required",
		},
		{
			name:        "bad version",
			manifest:    Manifest{Version: "soon", URL: "https://example.com/app.exe"},
			wantErr:     true,
			errContains: "not a valid version",
		},
		{
			name:        "missing url",
			manifest:    Manifest{Version: "1.2.0"},
			wantErr:     true,
			errContains: "url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.manifest.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error, got nil")
				}
				if !contains(err.Error(), tt.errContains) {
					t.Errorf("Validate() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[State][]State{
		StateIdle:            {StateChecking},
		StateChecking:        {StateAwaitingConsent, StateIdle},
		StateAwaitingConsent: {StateIdle, StateDownloading},
		StateDownloading:     {StateReadyToSwap, StateFailed},
		StateReadyToSwap:     {StateSwapping, StateIdle},
		StateSwapping:        {StateFailed},
		StateFailed:          {StateIdle},
	}
	all := []State{StateIdle, StateChecking, StateAwaitingConsent, StateDownloading, StateReadyToSwap, StateSwapping, StateFailed}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
