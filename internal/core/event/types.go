package event

import (
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/grid"
)

// DamageApplied 角色扣血時發出。
type DamageApplied struct {
	Source ecs.EntityID // Nil for tile hazards
	Target ecs.EntityID
	Amount int
	Health int // target health after the hit
}

type Healed struct {
	Target ecs.EntityID
	Amount int
	Health int
}

// ItemDropped is emitted when a defeated actor leaves an item on the grid.
type ItemDropped struct {
	By   ecs.EntityID
	Cell grid.Cell
	Code grid.Code
}

// ItemCollected 玩家踩到可拾取磚塊時發出。
type ItemCollected struct {
	By   ecs.EntityID
	Cell grid.Cell
	Code grid.Code
}

type SwitchToggled struct {
	By       ecs.EntityID
	Cell     grid.Cell
	From, To grid.Code
	Replaced int
}

type CheckpointReached struct {
	By    ecs.EntityID
	Level int
	Cell  grid.Cell
}

// StateChanged 每次狀態機轉換時發出。
type StateChanged struct {
	Entity ecs.EntityID
	From   string
	To     string
}

type EntityDespawned struct {
	Entity  ecs.EntityID
	Species string
	Cell    grid.Cell
}

// PlayerDied is emitted when the player's health reaches zero. Inventory
// listeners take a life in response.
type PlayerDied struct {
	Entity ecs.EntityID
	Cell   grid.Cell
}

type AlarmRaised struct {
	By   ecs.EntityID
	Cell grid.Cell
}

// SceneExit is emitted when the session must leave the current scene,
// either through an exit tile or because no lives remain.
type SceneExit struct {
	Reason string
	Level  int
}

// Jumped 受重力角色離地起跳時發出。
type Jumped struct {
	Entity ecs.EntityID
}
