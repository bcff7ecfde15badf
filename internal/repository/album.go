// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/cardbinder/cardbinder/internal/models"
)

// CreateAlbum inserts a new album and fills in its generated ID.
func (r *Repository) CreateAlbum(ctx context.Context, album *models.Album) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO albums (account_id, name, description) VALUES (?, ?, ?)`,
		album.AccountID, album.Name, album.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	album.ID = id
	return nil
}

// ListAlbumsByAccount returns an account's albums, newest first.
func (r *Repository) ListAlbumsByAccount(ctx context.Context, accountID int64) ([]models.Album, error) {
	var albums []models.Album
	err := r.db.SelectContext(ctx, &albums,
		`SELECT * FROM albums WHERE account_id = ? ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	return albums, nil
}

// AddAlbumCard places a card in a page/position slot of an album.
func (r *Repository) AddAlbumCard(ctx context.Context, card *models.AlbumCard) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO album_cards (album_id, page, position, card_ref, image_url) VALUES (?, ?, ?, ?, ?)`,
		card.AlbumID, card.Page, card.Position, card.CardRef, card.ImageURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	card.ID = id
	return nil
}

// CountAlbumsByAccount returns the number of albums an account owns.
func (r *Repository) CountAlbumsByAccount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM albums WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, err
	}
	return count, nil
}
