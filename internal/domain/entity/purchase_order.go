package entity

import "time"

// Estados de una orden de compra.
const (
	PurchaseOrderDraft             = "DRAFT"
	PurchaseOrderSent              = "SENT"
	PurchaseOrderPartiallyReceived = "PARTIALLY_RECEIVED"
	PurchaseOrderReceived          = "RECEIVED"
	PurchaseOrderCancelled         = "CANCELLED"
)

// PurchaseOrder orden de compra; solo se modela lo necesario para la recepción.
type PurchaseOrder struct {
	ID        string
	TenantID  string
	Number    string
	Status    string
	Lines     []PurchaseOrderLine
	Version   int64
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PurchaseOrderLine línea pedida de un ítem. QuantityReserved es lo apartado por
// recepciones en curso que todavía no ajustaron el stock.
type PurchaseOrderLine struct {
	LineID           string
	ItemID           string
	QuantityOrdered  int64
	QuantityReceived int64
	QuantityReserved int64
}

// Outstanding cantidad que todavía puede recibirse.
func (l PurchaseOrderLine) Outstanding() int64 {
	return max(l.QuantityOrdered-l.QuantityReceived-l.QuantityReserved, 0)
}

// CanReceive indica si la orden admite recepciones.
func (po *PurchaseOrder) CanReceive() bool {
	return po.Status == PurchaseOrderSent || po.Status == PurchaseOrderPartiallyReceived
}

// LineForItem devuelve el índice de la línea del ítem, o -1.
func (po *PurchaseOrder) LineForItem(itemID string) int {
	for i, l := range po.Lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

// FullyReceived indica si todas las líneas recibieron lo pedido.
func (po *PurchaseOrder) FullyReceived() bool {
	for _, l := range po.Lines {
		if l.QuantityReceived < l.QuantityOrdered {
			return false
		}
	}
	return true
}

// AnyReceived indica si alguna línea recibió mercancía.
func (po *PurchaseOrder) AnyReceived() bool {
	for _, l := range po.Lines {
		if l.QuantityReceived > 0 {
			return true
		}
	}
	return false
}

// ReceiptInProgress indica si hay cantidades reservadas por una recepción sin liquidar.
func (po *PurchaseOrder) ReceiptInProgress() bool {
	for _, l := range po.Lines {
		if l.QuantityReserved > 0 {
			return true
		}
	}
	return false
}

// Clone copia la orden y sus líneas.
func (po *PurchaseOrder) Clone() *PurchaseOrder {
	cp := *po
	cp.Lines = append([]PurchaseOrderLine(nil), po.Lines...)
	return &cp
}
