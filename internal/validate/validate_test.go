package validate

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestFullMode(t *testing.T) {
	tests := []struct {
		name      string
		input     Input
		wantField string // "" 表示通过
	}{
		{"valid", Input{Name: strPtr("Ann Lee"), Email: strPtr("ann@example.com")}, ""},
		{"valid with role", Input{Name: strPtr("Ann Lee"), Email: strPtr("ann@example.com"), Role: strPtr("admin")}, ""},
		{"missing name", Input{Email: strPtr("ann@example.com")}, "name"},
		{"missing email", Input{Name: strPtr("Ann Lee")}, "email"},
		{"all missing reports name first", Input{}, "name"},
		{"bad role", Input{Name: strPtr("Ann Lee"), Email: strPtr("ann@example.com"), Role: strPtr("superadmin")}, "role"},
		{"name beats email in priority", Input{Name: strPtr("A"), Email: strPtr("not-an-email")}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := User(tt.input, Full)
			if tt.wantField == "" {
				if v != nil {
					t.Fatalf("User() = %+v, want pass", v)
				}
				return
			}
			if v == nil || v.Field != tt.wantField {
				t.Fatalf("User() = %+v, want violation on %q", v, tt.wantField)
			}
		})
	}
}

func TestPartialMode(t *testing.T) {
	tests := []struct {
		name      string
		input     Input
		wantField string
	}{
		{"empty patch passes", Input{}, ""},
		{"only role checked", Input{Role: strPtr("user")}, ""},
		{"bad provided name", Input{Name: strPtr("A")}, "name"},
		{"bad provided email", Input{Email: strPtr("nope")}, "email"},
		{"bad provided role", Input{Role: strPtr("root")}, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := User(tt.input, Partial)
			if tt.wantField == "" {
				if v != nil {
					t.Fatalf("User() = %+v, want pass", v)
				}
				return
			}
			if v == nil || v.Field != tt.wantField {
				t.Fatalf("User() = %+v, want violation on %q", v, tt.wantField)
			}
		})
	}
}

func TestNameBoundaries(t *testing.T) {
	tests := []struct {
		length int
		ok     bool
	}{
		{1, false},
		{2, true},
		{50, true},
		{51, false},
	}
	for _, tt := range tests {
		name := strings.Repeat("a", tt.length)
		v := User(Input{Name: &name}, Partial)
		if (v == nil) != tt.ok {
			t.Errorf("name of %d chars: violation=%v, want ok=%v", tt.length, v, tt.ok)
		}
	}
}

func TestNameLengthCountsRunes(t *testing.T) {
	// 长度按字符数计，多字节字符不按字节数膨胀
	tests := []struct {
		name  string
		runes int
		ok    bool
	}{
		{"你", 1, false},                      // 1 字符（3 字节）仍然太短
		{"张伟", 2, true},                      // 2 字符（6 字节）合法
		{strings.Repeat("你", 20), 20, true},  // 20 字符（60 字节）合法
		{strings.Repeat("你", 50), 50, true},  // 上界
		{strings.Repeat("你", 51), 51, false}, // 超出上界
		{"Müller", 6, true},
	}
	for _, tt := range tests {
		name := tt.name
		v := User(Input{Name: &name}, Partial)
		if (v == nil) != tt.ok {
			t.Errorf("name of %d runes (%d bytes): violation=%v, want ok=%v",
				tt.runes, len(tt.name), v, tt.ok)
		}
	}
}

func TestNameTrimmedBeforeLengthCheck(t *testing.T) {
	// 去除空白后只剩 1 个字符
	name := "  a  "
	if v := User(Input{Name: &name}, Partial); v == nil || v.Field != "name" {
		t.Fatalf("User() = %+v, want name violation", v)
	}

	// 去除空白后正好 2 个字符
	name = " ab "
	if v := User(Input{Name: &name}, Partial); v != nil {
		t.Fatalf("User() = %+v, want pass", v)
	}
}

func TestEmailSyntax(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"ann@example.com", true},
		{"ann.lee+tag@sub.example.co", true},
		{"ann@example", false}, // 无 TLD
		{"@example.com", false},
		{"ann@", false},
		{"ann example@example.com", false},
		{"plainstring", false},
		{"", false},
	}
	for _, tt := range tests {
		email := tt.email
		v := User(Input{Email: &email}, Partial)
		if (v == nil) != tt.ok {
			t.Errorf("email %q: violation=%v, want ok=%v", tt.email, v, tt.ok)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := NormalizeEmail("  Ann@Example.COM "); got != "ann@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
	if got := NormalizeName("  Ann Lee "); got != "Ann Lee" {
		t.Errorf("NormalizeName() = %q", got)
	}
}
