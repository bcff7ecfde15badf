// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Album is a card binder owned by an account. The album editor itself lives
// outside this service; the model exists so account deletion can cascade over
// owned collection data.
type Album struct { //nolint:govet // fieldalignment: readability over optimization
	ID          int64     `db:"id" json:"id"`
	AccountID   int64     `db:"account_id" json:"account_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AlbumCard pins a third-party card image to a page/position slot in an album.
type AlbumCard struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	AlbumID   int64     `db:"album_id" json:"album_id"`
	Page      int       `db:"page" json:"page"`
	Position  int       `db:"position" json:"position"`
	CardRef   string    `db:"card_ref" json:"card_ref"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
