package sender

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	t.Setenv("TEMPO_TOKEN", "s3cr3t")
	values := map[string]string{"messageNumber": "12", "user.name": "alice"}

	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"/msg/${messageNumber}", "/msg/12"},
		{"${user.name}-${messageNumber}", "alice-12"},
		{"Bearer ${env:TEMPO_TOKEN}", "Bearer s3cr3t"},
		{"$messageNumber", "$messageNumber"},
	}
	for _, tt := range tests {
		got, err := Substitute(tt.in, values)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSubstitute_Missing(t *testing.T) {
	_, err := Substitute("${a} ${b} ${env:TEMPO_SURELY_UNSET}", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"b"`)
	assert.Contains(t, err.Error(), "TEMPO_SURELY_UNSET")
}

func TestSubstituteMap(t *testing.T) {
	got, err := SubstituteMap(map[string]string{"X-Id": "${id}"}, map[string]string{"id": "9"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-Id": "9"}, got)

	got, err = SubstituteMap(nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = SubstituteMap(map[string]string{"X-Id": "${id}"}, nil)
	assert.ErrorContains(t, err, "X-Id")
}

func ExampleSubstitute() {
	s, _ := Substitute(`{"id": ${messageNumber}}`, map[string]string{"messageNumber": "3"})
	fmt.Println(s)
	// Output: {"id": 3}
}
