package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_index_up.sql":      {Data: []byte("CREATE INDEX ...")},
		"0001_exchange_log_up.sql":   {Data: []byte("CREATE TABLE ...")},
		"0001_exchange_log_down.sql": {Data: []byte("DROP TABLE ...")},
		"README.md":                  {Data: []byte("docs")},
		"notes_up.sql":               {Data: []byte("-- 无版本号前缀，忽略")},
	}
	files, err := discover(fsys)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, int64(1), files[0].Version)
	assert.Equal(t, "0001_exchange_log_up.sql", files[0].Path)
	assert.Equal(t, int64(2), files[1].Version)
}

func TestDiscover_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a_up.sql": {Data: []byte("")},
		"0001_b_up.sql": {Data: []byte("")},
	}
	_, err := discover(fsys)
	assert.Error(t, err)
}

func TestUp_NilFS(t *testing.T) {
	_, err := Runner{}.Up(t.Context(), nil)
	assert.Error(t, err)
}
