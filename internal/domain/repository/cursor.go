package repository

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// MovementCursor posición de lectura en el libro (orden created_at DESC, id DESC).
type MovementCursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"i"`
}

// Encode serializa el cursor como token opaco.
func (c MovementCursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Before indica si (createdAt, id) va después del cursor en orden descendente.
func (c MovementCursor) Before(createdAt time.Time, id string) bool {
	if createdAt.Equal(c.CreatedAt) {
		return id < c.ID
	}
	return createdAt.Before(c.CreatedAt)
}

// DecodeMovementCursor interpreta un token de página; token vacío = sin cursor.
func DecodeMovementCursor(token string) (*MovementCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: page_token", domain.ErrInvalidInput)
	}
	var c MovementCursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" {
		return nil, fmt.Errorf("%w: page_token", domain.ErrInvalidInput)
	}
	return &c, nil
}
