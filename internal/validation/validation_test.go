package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "password123", false},
		{"Exactly Min Length", "abcdef12", false},
		{"Too Short", "abc123", true},
		{"Too Long", strings.Repeat("a", 72) + "1", true},
		{"No Digit", "passwordonly", true},
		{"No Letter", "1234567890", true},
		{"Unicode Letters", "Ångström99", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateName("Al"))
	assert.NoError(t, ValidateName(strings.Repeat("é", 50)))
	assert.Error(t, ValidateName(" A "))
	assert.Error(t, ValidateName(strings.Repeat("x", 51)))
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"ada@example.com", false},
		{"first.last+tag@sub.example.org", false},
		{"no-at-sign.example.com", true},
		{"missing@tld", true},
		{strings.Repeat("a", 250) + "@example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if tt.wantErr {
				assert.Error(t, ValidateEmail(tt.email))
			} else {
				assert.NoError(t, ValidateEmail(tt.email))
			}
		})
	}
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}

func TestValidateTitleAndContent(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateTitle("X"))
	assert.Error(t, ValidateTitle("   "))
	assert.Error(t, ValidateTitle(strings.Repeat("t", MaxTitleLength+1)))

	assert.NoError(t, ValidateContent("<p>hi</p>"))
	assert.Error(t, ValidateContent(""))
	assert.Error(t, ValidateContent(strings.Repeat("c", MaxContentLength+1)))
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()
	tags, err := NormalizeTags([]string{" t1 ", "", "t2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, tags)

	tags, err = NormalizeTags(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, tags)

	_, err = NormalizeTags(make([]string, MaxTags+1))
	assert.Error(t, err)

	_, err = NormalizeTags([]string{strings.Repeat("x", MaxTagLength+1)})
	assert.Error(t, err)
}

func TestDedupeIDs(t *testing.T) {
	t.Parallel()
	ids, err := DedupeIDs([]uint{3, 1, 3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1, 2}, ids)

	_, err = DedupeIDs([]uint{1, 0})
	assert.Error(t, err)
}
