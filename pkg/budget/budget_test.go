package budget

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name                  string
		prompt, input, output int
		window                int
		wantErr               bool
	}{
		{"under window", 500, 2000, 1000, 4096, false},
		{"exactly at window", 1096, 2000, 1000, 4096, false},
		{"one over window", 1097, 2000, 1000, 4096, true},
		{"negative allocation", -1, 2000, 1000, 4096, true},
		{"zero everything", 0, 0, 0, 4096, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.prompt, tt.input, tt.output, tt.window)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := b.TotalTokens(); got != tt.prompt+tt.input+tt.output {
				t.Errorf("TotalTokens() = %d", got)
			}
			if got := b.MaxInputChars(); got != tt.input*CharsPerToken {
				t.Errorf("MaxInputChars() = %d, want %d", got, tt.input*CharsPerToken)
			}
			if got := b.MaxOutputChars(); got != tt.output*CharsPerToken {
				t.Errorf("MaxOutputChars() = %d, want %d", got, tt.output*CharsPerToken)
			}
		})
	}
}

func TestMustPanicsOverWindow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Must did not panic for an over-window allocation")
		}
	}()
	Must(2000, 2000, 2000)
}

func TestCheckWindowAgainstRegisteredBudgets(t *testing.T) {
	b := Must(100, 200, 300)

	if got := MaxTotalTokens(); got < b.TotalTokens() {
		t.Fatalf("MaxTotalTokens() = %d, want >= %d", got, b.TotalTokens())
	}
	if err := CheckWindow(DefaultContextWindow); err != nil {
		t.Errorf("registered budgets must fit the default window: %v", err)
	}
	if err := CheckWindow(b.TotalTokens() - 1); err == nil {
		t.Error("CheckWindow should reject a window smaller than a registered budget")
	}
}
