package entity

import "time"

// Estados de una operación pendiente.
const (
	PendingOpen      = "OPEN"
	PendingCompleted = "COMPLETED"
	PendingAbandoned = "ABANDONED"
	PendingReplayed  = "REPLAYED"
)

// PendingOperation diario de un ajuste en almacenamientos sin transacción que abarque
// catálogo y libro. Se abre antes del compare-and-swap y se cierra tras el append;
// las que quedan abiertas las resuelve el reconciliador.
//
// Owner identifica la llamada que tiene reclamada la operación: solo puede haber una entrada
// OPEN por OperationID y solo su dueño la cierra.
type PendingOperation struct {
	ID              string // = StockMovement.OperationID
	TenantID        string
	ItemID          string
	Owner           string
	ExpectedVersion int64
	Movement        StockMovement
	Status          string
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}
