package upi

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantErr  string
		username string
		domain   string
	}{
		{name: "simple", raw: "alice@paytm", username: "alice", domain: "paytm"},
		{name: "case preserved", raw: "Alice.K@OkSBI", username: "Alice.K", domain: "OkSBI"},
		{name: "minimum lengths", raw: "abc@xy", username: "abc", domain: "xy"},
		{name: "dotted domain", raw: "carol@help.sbi", username: "carol", domain: "help.sbi"},
		{name: "surrounding spaces are not trimmed", raw: " abc@ybl ", username: " abc", domain: "ybl "},

		{name: "empty", raw: "", wantErr: MsgInvalidFormat},
		{name: "no separator", raw: "noatsign", wantErr: MsgSeparatorCount},
		{name: "two separators", raw: "a@b@c", wantErr: MsgSeparatorCount},
		{name: "only separator", raw: "@", wantErr: MsgUsernameTooShort},
		{name: "short username", raw: "ab@x", wantErr: MsgUsernameTooShort},
		{name: "empty username", raw: "@paytm", wantErr: MsgUsernameTooShort},
		{name: "one-letter username", raw: "x@unknownbank", wantErr: MsgUsernameTooShort},
		{name: "empty domain", raw: "alice@", wantErr: MsgDomainRequired},
		{name: "one-letter domain", raw: "alice@x", wantErr: MsgDomainRequired},
		{name: "two multibyte username characters", raw: "日本@paytm", wantErr: MsgUsernameTooShort},
		{name: "one multibyte domain character", raw: "abc@é", wantErr: MsgDomainRequired},
		{name: "multibyte at minimum lengths", raw: "日本語@éé", username: "日本語", domain: "éé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := Parse(tt.raw)

			if tt.wantErr != "" {
				require.Error(t, err)
				var fe *FormatError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, tt.wantErr, fe.Message)
				assert.Equal(t, ParsedAddress{}, addr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.username, addr.Username)
			assert.Equal(t, tt.domain, addr.Domain)
			assert.Equal(t, tt.raw, addr.String())
		})
	}
}

func TestParse_SeparatorCountProperty(t *testing.T) {
	inputs := []string{"plain", "a@@b", "user@bank@ybl", "@@", "x@y@z@w", strings.Repeat("@", 5)}

	for _, raw := range inputs {
		_, err := Parse(raw)
		require.Error(t, err, raw)
		assert.Equal(t, MsgSeparatorCount, err.Error(), raw)
	}
}

func TestParse_UsernameCheckedBeforeDomain(t *testing.T) {
	_, err := Parse("ab@x")
	require.Error(t, err)
	assert.Equal(t, MsgUsernameTooShort, err.Error())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		wantErr string
	}{
		{"string", "alice@ybl", ""},
		{"nil", nil, MsgInvalidFormat},
		{"number", 42, MsgInvalidFormat},
		{"bool", true, MsgInvalidFormat},
		{"map", map[string]string{"upi": "alice@ybl"}, MsgInvalidFormat},
		{"bad string", "alice", MsgSeparatorCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseValue(tt.value)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("merchant@okaxis"))
	assert.EqualError(t, Validate("me@okaxis"), MsgUsernameTooShort)
}
