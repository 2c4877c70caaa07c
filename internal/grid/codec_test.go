package grid

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePlain(t *testing.T) {
	src := `# stage 1-1
0, 0, 0
0,50,0

100,100,100
`
	rows, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, [][]Code{{0, 0, 0}, {0, 50, 0}, {100, 100, 100}}, rows)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader("# only a comment\n"))
	assert.ErrorIs(t, err, ErrEmptyLevel)

	_, err = Decode(strings.NewReader("0,x,0\n"))
	assert.Error(t, err)
}

func TestEncodeRoundTripWithChecksum(t *testing.T) {
	rows := [][]Code{{0, 1, 2}, {600, 0, 51}}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), checksumPrefix))

	got, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	tampered := strings.Replace(buf.String(), "600", "601", 1)
	_, err = Decode(strings.NewReader(tampered))
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestLoadStage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1-1.txt")
	require.NoError(t, os.WriteFile(path, []byte("0,0\n100,100\n"), 0o644))

	rows, err := LoadStage(path)
	require.NoError(t, err)
	assert.Equal(t, [][]Code{{0, 0}, {100, 100}}, rows)

	_, err = LoadStage(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
	_, err = LoadStage(filepath.Join(dir, "stage.png"))
	assert.Error(t, err)
}

func TestLoadTMX(t *testing.T) {
	const tmx = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="3" height="2" tilewidth="16" tileheight="16" infinite="0" nextlayerid="3" nextobjectid="2">
 <tileset firstgid="1" name="t" tilewidth="16" tileheight="16" tilecount="4" columns="4">
  <image source="t.png" width="64" height="16"/>
  <tile id="1">
   <properties>
    <property name="code" type="int" value="600"/>
   </properties>
  </tile>
 </tileset>
 <layer id="1" name="codes" width="3" height="2">
  <data encoding="csv">
0,0,1,
2,2,2
</data>
 </layer>
 <objectgroup id="2" name="markers">
  <object id="1" x="17" y="2">
   <properties>
    <property name="code" type="int" value="50"/>
   </properties>
  </object>
 </objectgroup>
</map>
`
	dir := t.TempDir()
	path := filepath.Join(dir, "stage.tmx")
	require.NoError(t, os.WriteFile(path, []byte(tmx), 0o644))

	rows, err := LoadStage(path)
	require.NoError(t, err)
	// gid 1 is tile id 0 (no code property) -> 1; gid 2 is tile id 1 -> 600
	assert.Equal(t, [][]Code{{0, 50, 1}, {600, 600, 600}}, rows)
}
