package data

// Drop is one possible item left behind when an actor dies. The item is a
// tile code stamped into the grid at the actor's cell.
type Drop struct {
	Code   int `yaml:"code"`
	Chance int `yaml:"chance"` // out of 100 (100 = always)
}

// PickDrop walks drops in order and returns the first whose chance covers
// roll (0..99). Chances are independent per entry.
func PickDrop(drops []Drop, roll func() int) (int, bool) {
	for _, d := range drops {
		if d.Code <= 0 {
			continue
		}
		if d.Chance >= 100 || roll() < d.Chance {
			return d.Code, true
		}
	}
	return 0, false
}
