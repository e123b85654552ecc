package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("hello world\n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	var out bytes.Buffer
	_, err := GetPassword(&out)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "strings numbers and bools",
			args: []string{"title=Boiler room", "floor=2", "urgent=true", "price=12.5"},
			want: map[string]any{"title": "Boiler room", "floor": int64(2), "urgent": true, "price": 12.5},
		},
		{
			name: "empty value clears",
			args: []string{"address="},
			want: map[string]any{"address": ""},
		},
		{
			name: "value may contain equals",
			args: []string{"note=a=b"},
			want: map[string]any{"note": "a=b"},
		},
		{name: "missing equals", args: []string{"title"}, wantErr: true},
		{name: "empty key", args: []string{"=x"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseFields(tc.args)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"update", "42", "title=Boiler room", "floor=2"},
		splitArgs(`update 42 "title=Boiler room" floor=2`))
	assert.Equal(t, []string{"comment", "42", "no one", "home"}, splitArgs(`  comment 42 "no one"   home `))
	assert.Equal(t, []string{"x", ""}, splitArgs(`x ""`))
	assert.Empty(t, splitArgs("   "))
}
