package refcode

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetNumbers(t *testing.T) {
	tests := []struct {
		desc string
		want []string
	}{
		{"NEFT TO XXXXXXXX1234 ACME", []string{"XXXXXXXX1234"}},
		{"IMPS xxxx xxxx 5678 / RAVI", []string{"xxxxxxxx5678"}},
		{"MOB/SELFFT/RAVI/123456789012", []string{"123456789012"}},
		{"Self Transfer to 50100123456789", []string{"50100123456789"}},
		{"XXX123 too short", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := GetNumbers(tt.desc)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberSuffixes(t *testing.T) {
	got := NumberSuffixes([]string{"XXXXXXXX1234", "XX12", "XXX", "123456789012"}, 4)
	assert.Equal(t, []string{"1234", "9012"}, got)
	assert.Empty(t, NumberSuffixes(nil, 4))
}

func TestLongNumbers(t *testing.T) {
	assert.Equal(t, []string{"123456789012", "98765"}, LongNumbers("REF 123456789012 / 1234 / 98765 / AB123456", 5))
	assert.Empty(t, LongNumbers("no digits here", 5))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "89012", Tail("123456789012", 5))
	assert.Equal(t, "1234", Tail("1234", 5))
	assert.Equal(t, "", Tail("", 5))
}

func TestMentionsTail(t *testing.T) {
	assert.True(t, MentionsTail("IMPS 000123456789 RAVI", "56789", 5))
	assert.False(t, MentionsTail("IMPS 000123456789 RAVI", "11111", 5))
	assert.False(t, MentionsTail("anything 12345", "", 5))
}

func TestExtractReferenceCode(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		desc, bank, want string
	}{
		{"IMPS-412345678901-RAVI KUMAR-HDFC", "HDFC", "412345678901"},
		{"MMT/IMPS/412345678902/ACME/SBIN", "ICICI", "412345678902"},
		{"TO TRANSFER-IMPS/P2A/412345678903/ACME", "SBI", "412345678903"},
		{"IMPS/P2A/412345678904/RAVI", "AXIS", "412345678904"},
		{"IMPS 412345678905 from acme", "XYZ", "412345678905"},
		{"UPI/412345678906/PAYMENT", "", "412345678906"},
		{"IMPS/4123456789012345/too long", "BOB", ""},
		{"NEFT N123 ACME", "HDFC", ""},
		{"", "HDFC", ""},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ExtractReferenceCode(tt.desc, tt.bank))
		})
	}
}

func TestExtractorRegister(t *testing.T) {
	e := NewExtractor()
	e.Register("zzb", regexp.MustCompile(`(?i)ZREF:(\d{8})`))

	assert.Contains(t, e.Banks(), "ZZB")
	assert.Equal(t, "12345678", e.ExtractReferenceCode("ZREF:12345678", "ZZB"))

	var zero Extractor
	assert.Equal(t, "412345678905", zero.ExtractReferenceCode("IMPS 412345678905", "HDFC"))
}
