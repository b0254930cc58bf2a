package sequence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestData_CSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "users.csv", `username,password,age
alice,secret1,25
bob,secret2,30
charlie,secret3,35`)

	d, err := NewData(path, ModeSequential)
	require.NoError(t, err)
	require.NoError(t, d.Reset())
	assert.Equal(t, 3, d.Len())

	var names []string
	for i := 0; i < 4; i++ {
		values := map[string]string{}
		d.PublishNext("user", values)
		names = append(names, values["user.username"])
	}
	assert.Equal(t, []string{"alice", "bob", "charlie", "alice"}, names)

	values := map[string]string{}
	d.PublishNext("user", values)
	assert.Equal(t, map[string]string{
		"user.username": "bob",
		"user.password": "secret2",
		"user.age":      "30",
	}, values)
}

func TestData_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "products.json", `[
		{"id": 1, "name": "Widget", "price": 9.99},
		{"id": 2, "name": "Gadget", "price": 19.99}
	]`)

	d, err := NewData(path, "")
	require.NoError(t, err)
	require.NoError(t, d.Reset())
	assert.Equal(t, 2, d.Len())

	row := d.Row()
	assert.Equal(t, "1", row["id"])
	assert.Equal(t, "Widget", row["name"])
	assert.Equal(t, "9.99", row["price"])
}

func TestData_Random(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ids.csv", "id\na\nb\nc\n")
	d, err := NewData(path, ModeRandom)
	require.NoError(t, err)
	require.NoError(t, d.Reset())

	for i := 0; i < 50; i++ {
		assert.Contains(t, []string{"a", "b", "c"}, d.Row()["id"])
	}
}

func TestData_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewData(filepath.Join(dir, "x.xml"), ModeSequential)
	assert.Error(t, err)
	_, err = NewData(filepath.Join(dir, "x.csv"), "shuffled")
	assert.Error(t, err)

	headerOnly, err := NewData(writeFile(t, dir, "h.csv", "id\n"), ModeSequential)
	require.NoError(t, err)
	assert.Error(t, headerOnly.Reset())

	notArray, err := NewData(writeFile(t, dir, "o.json", `{"id":1}`), ModeSequential)
	require.NoError(t, err)
	assert.Error(t, notArray.Reset())

	empty, err := NewData(writeFile(t, dir, "e.json", `[]`), ModeSequential)
	require.NoError(t, err)
	assert.Error(t, empty.Reset())
	assert.Nil(t, empty.Row())
}
