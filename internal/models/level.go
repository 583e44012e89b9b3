package models

// Level is a display tier derived from accumulated points.
type Level struct {
	Name      string
	Icon      string
	MinPoints int64
}

var levels = []Level{
	{Name: "새싹", Icon: "🌱", MinPoints: 0},
	{Name: "나무", Icon: "🌳", MinPoints: 100},
	{Name: "숲", Icon: "🌲", MinPoints: 500},
	{Name: "산", Icon: "⛰️", MinPoints: 2000},
}

// LevelFromPoints returns the highest level whose threshold the points reach.
func LevelFromPoints(points int64) Level {
	current := levels[0]
	for _, l := range levels {
		if points >= l.MinPoints {
			current = l
		}
	}
	return current
}
