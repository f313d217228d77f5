// Package bingo defines the core types shared across the game engine:
// title normalization, the grid and line layout, the closed fetch error
// variant, session snapshots, and the collaborator interfaces consumed by
// the navigation pipeline.
package bingo
