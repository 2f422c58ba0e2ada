package segment

import (
	"strings"
	"testing"
	"unicode"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

func TestSegment(t *testing.T) {
	s := New()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: "  \n\t \r\n ",
			want: nil,
		},
		{
			name: "single sentence",
			text: "The actor deployed a web shell.",
			want: []string{"The actor deployed a web shell."},
		},
		{
			name: "two sentences",
			text: "The actor deployed a web shell. It persisted across reboots.",
			want: []string{
				"The actor deployed a web shell.",
				"It persisted across reboots.",
			},
		},
		{
			name: "newline is a hard boundary",
			text: "First line without punctuation\nSecond line",
			want: []string{"First line without punctuation", "Second line"},
		},
		{
			name: "blank lines collapse",
			text: "One.\n\n\nTwo.",
			want: []string{"One.", "Two."},
		},
		{
			name: "technique id does not split",
			text: "Execution used T1059.003 on the host. Cleanup followed.",
			want: []string{
				"Execution used T1059.003 on the host.",
				"Cleanup followed.",
			},
		},
		{
			name: "decimal number does not split",
			text: "The sample was 4.2 MB in size. It was packed.",
			want: []string{"The sample was 4.2 MB in size.", "It was packed."},
		},
		{
			name: "abbreviation does not split",
			text: "Tools were staged in temp dirs, e.g. C:\\Windows\\Temp and others. Then exfil began.",
			want: []string{
				"Tools were staged in temp dirs, e.g. C:\\Windows\\Temp and others.",
				"Then exfil began.",
			},
		},
		{
			name: "single initial does not split",
			text: "Analyst John Q. Public reviewed the report. No changes were made.",
			want: []string{
				"Analyst John Q. Public reviewed the report.",
				"No changes were made.",
			},
		},
		{
			name: "question and exclamation",
			text: "Was the host compromised? Yes! Containment started.",
			want: []string{"Was the host compromised?", "Yes!", "Containment started."},
		},
		{
			name: "closing quote absorbed",
			text: `The note read "pay now." The incident was reported.`,
			want: []string{`The note read "pay now."`, "The incident was reported."},
		},
		{
			name: "lowercase continuation does not split",
			text: "The loader ran v2. of the implant silently",
			want: []string{"The loader ran v2. of the implant silently"},
		},
		{
			name: "run-on paragraph is one sentence",
			text: "no terminal punctuation here just a stream of words",
			want: []string{"no terminal punctuation here just a stream of words"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Segment(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d segments, got %d: %v", len(tt.want), len(got), segTexts(got))
			}
			for i, seg := range got {
				if seg.Text != tt.want[i] {
					t.Errorf("segment %d: expected %q, got %q", i, tt.want[i], seg.Text)
				}
				if seg.Order != i {
					t.Errorf("segment %d: expected order %d, got %d", i, i, seg.Order)
				}
			}
		})
	}
}

func TestSegmentOrdersAreDense(t *testing.T) {
	s := New()

	text := strings.Repeat("Sentence one. Sentence two.\n\n", 10)
	segs := s.Segment(text)

	if len(segs) != 20 {
		t.Fatalf("expected 20 segments, got %d", len(segs))
	}
	for i, seg := range segs {
		if seg.Order != i {
			t.Errorf("segment %d has order %d", i, seg.Order)
		}
	}
}

func TestSegmentConservesCharacters(t *testing.T) {
	// Splitting only ever discards whitespace: the segments, joined back
	// together, must contain every non-space rune of the input in order.
	doc := "APT41 (aka \"Wicked Panda\") breached the perimeter on 2023-04-12.\n" +
		"The intrusion began with a phishing email, e.g. a fake invoice of 4.2 MB.\n\n" +
		"Dr. J. Smith observed \"powershell -enc ...\" (T1059.001) on host DC-01!\n" +
		"Was lateral movement involved? Yes. The actor used T1021.002 and moved " +
		"approx. 1.3 GB of data to 203.0.113.9, then deleted logs etc. before leaving.\r\n" +
		"No. 7 on the kill chain (exfiltration) completed at 03:14 UTC."

	stripSpace := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
	}

	segs := New().Segment(doc)
	if len(segs) == 0 {
		t.Fatal("no segments produced")
	}

	var joined strings.Builder
	for i, seg := range segs {
		if seg.Order != i {
			t.Errorf("segment %d has order %d", i, seg.Order)
		}
		if seg.Text != strings.TrimSpace(seg.Text) {
			t.Errorf("segment %d not trimmed: %q", i, seg.Text)
		}
		joined.WriteString(seg.Text)
	}

	if got, want := stripSpace(joined.String()), stripSpace(doc); got != want {
		t.Errorf("characters lost or reordered across segmentation:\n got  %q\n want %q", got, want)
	}
}

func segTexts(segs []domain.Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}
