// Package grid maps widget positions to a packed 2-D layout and detects
// user-driven layout mutations worth persisting.
package grid

import (
	"strconv"

	"github.com/dashwall/dashwall/internal/models"
)

// Item is the ephemeral zero-based projection of one widget position.
// ID is the string form of the widget instance id.
type Item struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
	W  int    `json:"w"`
	H  int    `json:"h"`
}

// Layout is one grid snapshot
type Layout []Item

// ToLayout projects widget instances onto layout items. Position fields
// are one-based on the wire, items are zero-based.
func ToLayout(widgets []models.ProjectWidget) Layout {
	layout := make(Layout, 0, len(widgets))
	for _, w := range widgets {
		layout = append(layout, Item{
			ID: strconv.Itoa(w.ID),
			X:  w.WidgetPosition.GridColumn - 1,
			Y:  w.WidgetPosition.GridRow - 1,
			W:  w.WidgetPosition.Width,
			H:  w.WidgetPosition.Height,
		})
	}
	return layout
}

// HasMoved reports whether any item matched by id across the two snapshots
// changed position or size. Items present in only one snapshot never count
// as moves, so initial population and widget add/delete do not trigger a
// position update.
func HasMoved(before, after Layout) bool {
	prev := make(map[string]Item, len(before))
	for _, item := range before {
		prev[item.ID] = item
	}
	for _, item := range after {
		old, ok := prev[item.ID]
		if !ok {
			continue
		}
		if old.X != item.X || old.Y != item.Y || old.W != item.W || old.H != item.H {
			return true
		}
	}
	return false
}

// PositionRequests builds the full position-update batch for a layout,
// converting back to one-based grid coordinates. Items whose id is not a
// number are skipped.
func PositionRequests(layout Layout) []models.PositionUpdate {
	batch := make([]models.PositionUpdate, 0, len(layout))
	for _, item := range layout {
		id, err := strconv.Atoi(item.ID)
		if err != nil {
			continue
		}
		batch = append(batch, models.PositionUpdate{
			ProjectWidgetID: id,
			GridColumn:      item.X + 1,
			GridRow:         item.Y + 1,
			Width:           item.W,
			Height:          item.H,
		})
	}
	return batch
}
