package resource

import (
	"io/ioutil"
	"path"
	"strings"
	"testing"

	"github.com/harrison-roh/tensorflow-label-image/labelapp/config"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLabels(t *testing.T) {
	labels, err := ReadLabels(strings.NewReader("dummy\nkit fox\nEnglish setter\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dummy", "kit fox", "English setter"}, labels)

	// 마지막 개행이 없어도 동일
	labels, err = ReadLabels(strings.NewReader("dummy\nkit fox"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dummy", "kit fox"}, labels)

	// 빈 줄도 위치를 유지해야 함
	labels, err = ReadLabels(strings.NewReader("a\n\nc\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "c"}, labels)

	_, err = ReadLabels(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	graphDef := []byte{0x0a, 0x05, 'i', 'n', 'p', 'u', 't'}
	require.NoError(t, ioutil.WriteFile(path.Join(dir, constants.GraphFile), graphDef, 0644))
	require.NoError(t, ioutil.WriteFile(path.Join(dir, constants.LabelsFile), []byte("cat\ndog\n"), 0644))

	b, err := Load(config.Default(dir))
	require.NoError(t, err)
	assert.Equal(t, graphDef, b.GraphDef)
	assert.Equal(t, []string{"cat", "dog"}, b.Labels)
	assert.Equal(t, constants.DefaultModelName, b.Config.Name)
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(config.Default(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), constants.GraphFile)

	require.NoError(t, ioutil.WriteFile(path.Join(dir, constants.GraphFile), []byte{1}, 0644))
	_, err = Load(config.Default(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), constants.LabelsFile)
}

func TestLoadGraphDefEmpty(t *testing.T) {
	file := path.Join(t.TempDir(), "empty.pb")
	require.NoError(t, ioutil.WriteFile(file, nil, 0644))

	_, err := LoadGraphDef(file)
	assert.Error(t, err)
}
