package datacat

import (
	"fmt"
	"os"
	"path/filepath"
)

// shardPath maps an identifier and file extension to the nested blob path
// <root>/<id[0:2]>/<id[2:4]>/<id>.<ext>. Two levels of two-hex-character
// directories bound fan-out to 256 entries per level regardless of catalog
// size.
func shardPath(root, id, ext string) string {
	return filepath.Join(root, id[0:2], id[2:4], fmt.Sprintf("%s.%s", id, ext))
}

// ensureShardDir creates the shard directories for a blob path if missing.
// Directories are created lazily on first write to a shard.
func ensureShardDir(blobPath string) error {
	return os.MkdirAll(filepath.Dir(blobPath), 0o755)
}
