package classify

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "simple words lowercased",
			text: "PowerShell Execution Detected",
			want: []string{"powershell", "execution", "detected"},
		},
		{
			name: "punctuation splits",
			text: "spearphishing, attachment; execution.",
			want: []string{"spearphishing", "attachment", "execution"},
		},
		{
			name: "pure numbers dropped",
			text: "port 443 traffic on 8080",
			want: []string{"port", "traffic", "on"},
		},
		{
			name: "mixed alphanumeric kept",
			text: "technique t1059 and utf-8 payloads",
			want: []string{"technique", "t1059", "and", "utf-8", "payloads"},
		},
		{
			name: "single characters dropped",
			text: "a b c malware",
			want: []string{"malware"},
		},
		{
			name: "dash prose does not leave hyphens",
			text: "command -and- control",
			want: []string{"command", "and", "control"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
