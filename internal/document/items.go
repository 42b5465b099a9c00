package document

import "github.com/mapeditor/mapeditor/internal/engine"

// ToEngineItems converts the document into the positioned items the viewport
// engine keeps in its scene graph: one item per polygon and one per popup,
// companies included.
func ToEngineItems(d *MapDocument) (polygons, popups []engine.Item) {
	polygons = make([]engine.Item, 0, len(d.Polygons))
	for _, poly := range d.Polygons {
		pts := make([]engine.LogicalPoint, len(poly.Points))
		for i, p := range poly.Points {
			pts[i] = engine.LogicalPoint{X: p.X, Y: p.Y}
		}
		polygons = append(polygons, engine.Item{ID: poly.ID, Kind: engine.KindPolygon, Points: pts})
	}

	all := d.AllPopups()
	popups = make([]engine.Item, 0, len(all))
	for _, p := range all {
		popups = append(popups, engine.Item{
			ID:     p.ID,
			Kind:   engine.KindPopup,
			Points: []engine.LogicalPoint{{X: p.Position.X, Y: p.Position.Y}},
		})
	}
	return polygons, popups
}
