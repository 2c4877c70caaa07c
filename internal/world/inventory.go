package world

import (
	"github.com/l1jgo/tilesim/internal/core/event"
	"github.com/l1jgo/tilesim/internal/grid"
)

// Stock is a minimal session inventory: remaining lives and a count of
// collected item codes. It only learns about the simulation through bus
// events, so its facts lag the simulation by one tick.
type Stock struct {
	lives int
	items map[grid.Code]int
}

func NewStock(lives int) *Stock {
	return &Stock{lives: lives, items: make(map[grid.Code]int)}
}

// Attach 訂閱庫存需要追蹤的事件。
func (s *Stock) Attach(bus *event.Bus) {
	event.Subscribe(bus, func(e event.ItemCollected) {
		s.items[e.Code]++
	})
	event.Subscribe(bus, func(event.PlayerDied) {
		// 生命數不會低於零
		if s.lives > 0 {
			s.lives--
		}
	})
}

func (s *Stock) Lives() int { return s.lives }

// Count 回傳該代碼物品已收集的數量。
func (s *Stock) Count(code grid.Code) int { return s.items[code] }

// Restore 設定生命數與物品數量（讀取存檔時使用）。
func (s *Stock) Restore(lives int, items map[grid.Code]int) {
	s.lives = lives
	s.items = make(map[grid.Code]int, len(items))
	for k, v := range items {
		s.items[k] = v
	}
}

// Items 回傳收集數量的副本。
func (s *Stock) Items() map[grid.Code]int {
	out := make(map[grid.Code]int, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}
