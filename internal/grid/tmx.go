package grid

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lafriks/go-tiled"
)

// Layer and object group names recognised in .tmx stages.
const (
	TMXCodeLayer   = "codes"
	TMXMarkerGroup = "markers"
)

// LoadTMX converts a Tiled map into tile codes. The tile layer named
// layerName (TMXCodeLayer when empty, else the first tile layer) supplies
// codes: a tileset tile's integer "code" property wins, otherwise the tile
// id plus one is used so that id 0 is distinguishable from an empty cell.
// Objects in the TMXMarkerGroup object group carrying a "code" property
// stamp that code into the cell under the object's origin.
func LoadTMX(path, layerName string) ([][]Code, error) {
	fsys := os.DirFS(filepath.Dir(path))
	m, err := tiled.LoadFile(filepath.Base(path), tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", path, err)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("load TMX %s: %w", path, ErrEmptyLevel)
	}
	if layerName == "" {
		layerName = TMXCodeLayer
	}

	var layer *tiled.Layer
	for _, l := range m.Layers {
		if l.Name == layerName {
			layer = l
			break
		}
	}
	if layer == nil && len(m.Layers) > 0 {
		layer = m.Layers[0]
	}
	if layer == nil {
		return nil, fmt.Errorf("load TMX %s: no tile layer", path)
	}
	if len(layer.Tiles) < m.Width*m.Height {
		return nil, fmt.Errorf("load TMX %s: layer %q has %d tiles, want %d: %w",
			path, layer.Name, len(layer.Tiles), m.Width*m.Height, ErrDimensionMismatch)
	}

	rows := make([][]Code, m.Height)
	for y := 0; y < m.Height; y++ {
		rows[y] = make([]Code, m.Width)
		for x := 0; x < m.Width; x++ {
			tile := layer.Tiles[y*m.Width+x]
			if tile == nil || tile.IsNil() {
				continue
			}
			code := Code(tile.ID) + 1
			if tile.Tileset != nil {
				if tt, err := tile.Tileset.GetTilesetTile(tile.ID); err == nil && len(tt.Properties.Get("code")) > 0 {
					code = tt.Properties.GetInt("code")
				}
			}
			rows[y][x] = code
		}
	}

	if m.TileWidth > 0 && m.TileHeight > 0 {
		for _, og := range m.ObjectGroups {
			if og.Name != TMXMarkerGroup {
				continue
			}
			for _, o := range og.Objects {
				if len(o.Properties.Get("code")) == 0 {
					continue
				}
				cx := int(o.X) / m.TileWidth
				cy := int(o.Y) / m.TileHeight
				if cy < 0 || cy >= m.Height || cx < 0 || cx >= m.Width {
					continue
				}
				rows[cy][cx] = o.Properties.GetInt("code")
			}
		}
	}
	return rows, nil
}
