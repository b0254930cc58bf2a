package sequence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publish(t *testing.T, s Sequence, count int) []string {
	t.Helper()
	require.NoError(t, s.Reset())
	out := make([]string, count)
	for i := range out {
		values := map[string]string{}
		s.PublishNext("v", values)
		out[i] = values["v"]
	}
	return out
}

func TestBuild_Number(t *testing.T) {
	for _, async := range []bool{false, true} {
		s, err := Build(Config{
			Type:       "number",
			Async:      async,
			Properties: map[string]string{"start": "1", "end": "3", "step": "1"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3", "1"}, publish(t, s, 4))
	}
}

func TestBuild_RelativePaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lines.txt", "x\ny\n")
	writeFile(t, dir, "rows.csv", "k\nv\n")

	s, err := Build(Config{Type: "fileLines", Dir: dir, Properties: map[string]string{"path": "lines.txt"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "x"}, publish(t, s, 3))

	s, err = Build(Config{Type: "data", Dir: dir, Properties: map[string]string{"path": "rows.csv"}})
	require.NoError(t, err)
	require.NoError(t, s.Reset())
	values := map[string]string{}
	s.PublishNext("row", values)
	assert.Equal(t, "v", values["row.k"])
}

func TestBuild_Generators(t *testing.T) {
	s, err := Build(Config{Type: "uuid"})
	require.NoError(t, err)
	_, err = uuid.Parse(publish(t, s, 1)[0])
	assert.NoError(t, err)

	s, err = Build(Config{Type: "random", Properties: map[string]string{"min": "3", "max": "4"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "3"}, publish(t, s, 2))

	s, err = Build(Config{Type: "timestamp"})
	require.NoError(t, err)
	assert.NotEmpty(t, publish(t, s, 1)[0])
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(Config{Type: "fibonacci"})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Build(Config{Type: "number", Properties: map[string]string{"step": "two"}})
	assert.Error(t, err)

	_, err = Build(Config{Type: "random", Properties: map[string]string{"min": "5", "max": "5"}})
	assert.Error(t, err)

	_, err = Build(Config{Type: "fileLines"})
	assert.Error(t, err)
}

func TestTypes_AreBuildable(t *testing.T) {
	for _, typ := range Types() {
		_, err := Build(Config{Type: typ})
		assert.NotErrorIs(t, err, ErrUnknownType, typ)
	}
}
