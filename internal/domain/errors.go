package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// ErrInvalidState: la operación no está permitida en el estado actual del recurso
	// (orden de compra no recibible, ítem desactivado).
	ErrInvalidState = errors.New("estado inválido para la operación")
	// ErrVersionConflict: el compare-and-swap encontró una versión distinta a la esperada.
	// Es interno del motor; el llamador solo ve ErrContention si se agotan los reintentos.
	ErrVersionConflict = errors.New("conflicto de versión")
	ErrContention      = errors.New("contención: reintentos agotados")
	// ErrStorageUnavailable falla transitoria de infraestructura; el llamador puede reintentar con backoff.
	ErrStorageUnavailable = errors.New("almacenamiento no disponible")
	// ErrInconsistent: la cantidad del ítem cambió pero el movimiento no quedó en el libro.
	// Nunca debe mostrarse como un fallo normal: requiere reconciliación.
	ErrInconsistent = errors.New("inconsistencia entre catálogo y libro de movimientos")
)

// ErrInvalidRequest es el nombre usado por el motor de ajustes para ErrInvalidInput.
var ErrInvalidRequest = ErrInvalidInput

// ErrorKind clasificación estable de errores para llamadores externos.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindNotFound           ErrorKind = "NotFound"
	KindInvalidRequest     ErrorKind = "InvalidRequest"
	KindInsufficientStock  ErrorKind = "InsufficientStock"
	KindInvalidState       ErrorKind = "InvalidState"
	KindContention         ErrorKind = "Contention"
	KindStorageUnavailable ErrorKind = "StorageUnavailable"
	KindInconsistent       ErrorKind = "Inconsistent"
	KindDuplicate          ErrorKind = "Duplicate"
	KindUnknown            ErrorKind = "Unknown"
)

// Kind devuelve la clase de error. Inconsistent se evalúa primero porque puede envolver
// el error de almacenamiento que lo causó.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInconsistent):
		return KindInconsistent
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidRequest
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrContention), errors.Is(err, ErrVersionConflict):
		return KindContention
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	default:
		return KindUnknown
	}
}

// IsBusinessRejection indica si el error es un rechazo de regla de negocio (sin reintento, sin mutación).
func IsBusinessRejection(err error) bool {
	switch Kind(err) {
	case KindNotFound, KindInvalidRequest, KindInsufficientStock, KindInvalidState:
		return true
	}
	return false
}
